// Package schema describes the expected shape of every source table: its
// fields, their logical types, and which of them an analysis cannot do
// without. Contracts are plain data so they can also be decoded from JSON
// config when a deployment carries extra tables.
package schema

import (
	"insights/internal/table"
)

// Logical field types. Ingestion coerces cells according to these.
const (
	TypeKey     = "key"     // join key; canonicalized by the key normalizer
	TypeInt     = "int"     // whole-number measure
	TypeDecimal = "decimal" // fractional measure or money
	TypeText    = "text"
	TypeDate    = "date"
)

// Field is one column of a contract.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// Contract is the expected schema of one named table.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Check returns a MissingColumnError for the first required field absent from
// t. Extra columns are allowed.
func (c Contract) Check(t *table.Table) error {
	for _, f := range c.Fields {
		if f.Required && !t.Has(f.Name) {
			return &table.MissingColumnError{Table: c.Name, Column: f.Name}
		}
	}
	return nil
}

// Types maps each field present in t to its logical type.
func (c Contract) Types(t *table.Table) map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		if t.Has(f.Name) {
			out[f.Name] = f.Type
		}
	}
	return out
}

// Keys lists the key-typed fields.
func (c Contract) Keys() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Type == TypeKey {
			out = append(out, f.Name)
		}
	}
	return out
}
