// Package transformer defines the table-to-table transformation contract used
// at ingest and ahead of every join. Transformers never mutate their input.
package transformer

import "insights/internal/table"

// Transformer turns one table into another.
type Transformer interface {
	Apply(t *table.Table) (*table.Table, error)
}

// Func adapts a plain function to Transformer.
type Func func(t *table.Table) (*table.Table, error)

// Apply calls f.
func (f Func) Apply(t *table.Table) (*table.Table, error) { return f(t) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order, stopping at the first error.
func (c Chain) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, t := range c {
		var err error
		if out, err = t.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
