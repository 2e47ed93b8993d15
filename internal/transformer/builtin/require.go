package builtin

import "insights/internal/table"

// Require drops rows with a null in any of Fields.
type Require struct {
	Fields []string
}

// Apply implements transformer.Transformer.
func (r Require) Apply(t *table.Table) (*table.Table, error) {
	return t.DropNull(r.Fields...)
}
