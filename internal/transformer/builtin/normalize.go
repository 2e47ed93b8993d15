package builtin

import (
	"strings"

	"insights/internal/table"
)

// naMarkers are the textual spellings of a missing value found in database
// extracts and spreadsheet exports.
var naMarkers = map[string]struct{}{
	"NULL": {}, "null": {}, "NaN": {}, "nan": {}, "N/A": {}, "NA": {}, "n/a": {},
	"#N/A": {}, "None": {}, "<NA>": {},
}

// Normalize trims string cells, repairs the mis-decoded non-breaking space,
// and turns blank cells and NA markers into nil.
type Normalize struct{}

// Apply implements transformer.Transformer.
func (Normalize) Apply(t *table.Table) (*table.Table, error) {
	out := t
	for _, c := range t.Columns() {
		col := c
		out = out.WithColumn(col, func(r table.Row) any { return NormalizeCell(r.Get(col)) })
	}
	return out, nil
}

// NormalizeCell is the per-cell rule of Normalize.
func NormalizeCell(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "Â ", " "))
	if s == "" {
		return nil
	}
	if _, na := naMarkers[s]; na {
		return nil
	}
	return s
}
