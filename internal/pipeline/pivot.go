package pipeline

import (
	"sort"

	"insights/internal/table"
)

// Pivot reshapes t into a matrix with one row per distinct index value and
// one column per distinct columns value, holding the values cell. Repeated
// (index, column) pairs are summed. Combinations absent from t are set to
// fill. Rows with a null index or column value are skipped. Column headers
// are the text form of the values, sorted.
func Pivot(t *table.Table, index, columns, values string, fill any) (*table.Table, error) {
	if err := t.Require(index, columns, values); err != nil {
		return nil, err
	}
	type cellKey struct{ row, col string }
	var (
		rowOrder []any
		rowSeen  = map[string]bool{}
		colSeen  = map[string]bool{}
		colNames []string
		cells    = map[cellKey]float64{}
		present  = map[cellKey]bool{}
	)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		iv, cv := r.Get(index), r.Get(columns)
		if table.IsNull(iv) || table.IsNull(cv) {
			continue
		}
		rk, ck := table.Text(iv), table.Text(cv)
		if !rowSeen[rk] {
			rowSeen[rk] = true
			rowOrder = append(rowOrder, iv)
		}
		if !colSeen[ck] {
			colSeen[ck] = true
			colNames = append(colNames, ck)
		}
		k := cellKey{rk, ck}
		if f, ok := r.Float(values); ok {
			cells[k] += f
			present[k] = true
		}
	}
	sort.SliceStable(rowOrder, func(a, b int) bool { return table.Compare(rowOrder[a], rowOrder[b]) < 0 })
	sort.Strings(colNames)

	cols := append([]string{index}, colNames...)
	rows := make([][]any, 0, len(rowOrder))
	for _, iv := range rowOrder {
		rk := table.Text(iv)
		nr := make([]any, 0, len(cols))
		nr = append(nr, iv)
		for _, ck := range colNames {
			k := cellKey{rk, ck}
			if present[k] {
				nr = append(nr, cells[k])
			} else {
				nr = append(nr, fill)
			}
		}
		rows = append(rows, nr)
	}
	return table.New(t.Name(), cols, rows)
}
