package builtin

import (
	"math"

	"insights/internal/schema"
	"insights/internal/table"
)

// Coerce converts cells to the logical types of a contract: keys are
// canonicalized and marked, ints become int64, decimals float64, dates
// time.Time and text string. A cell that does not parse is left unchanged so
// that a later aggregation can report it instead of silently zeroing it.
type Coerce struct {
	Types map[string]string // column -> schema.Type*
}

// ForContract builds a Coerce for the fields of c present in t.
func ForContract(c schema.Contract, t *table.Table) Coerce {
	return Coerce{Types: c.Types(t)}
}

// Apply implements transformer.Transformer.
func (c Coerce) Apply(t *table.Table) (*table.Table, error) {
	if len(c.Types) == 0 {
		return t, nil
	}
	var keys []string
	out := t
	for col, typ := range c.Types {
		if !t.Has(col) {
			continue
		}
		if typ == schema.TypeKey {
			keys = append(keys, col)
			continue
		}
		name, conv := col, converter(typ)
		if conv == nil {
			continue
		}
		out = out.WithColumn(name, func(r table.Row) any { return conv(r.Get(name)) })
	}
	if len(keys) > 0 {
		return NormalizeKeys{Columns: keys}.Apply(out)
	}
	return out, nil
}

func converter(typ string) func(any) any {
	switch typ {
	case schema.TypeInt:
		return func(v any) any {
			if table.IsNull(v) {
				return nil
			}
			f, ok := table.Float(v)
			if !ok {
				return v
			}
			if f == math.Trunc(f) {
				return int64(f)
			}
			return f
		}
	case schema.TypeDecimal:
		return func(v any) any {
			if table.IsNull(v) {
				return nil
			}
			if f, ok := table.Float(v); ok {
				return f
			}
			return v
		}
	case schema.TypeDate:
		return func(v any) any {
			if table.IsNull(v) {
				return nil
			}
			if tm, ok := table.Time(v); ok {
				return tm
			}
			return v
		}
	case schema.TypeText:
		return func(v any) any {
			if table.IsNull(v) {
				return nil
			}
			return table.Text(v)
		}
	}
	return nil
}
