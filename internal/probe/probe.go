// Package probe inspects a raw extract before it is loaded: its shape, the
// type each column looks like, and whether it satisfies the table's contract.
// It works on unparsed string cells, so it reports what ingestion would see.
package probe

import (
	"fmt"
	"strconv"
	"strings"

	"insights/internal/schema"
	"insights/internal/table"
	"insights/internal/transformer/builtin"
)

// Column is the finding for one column.
type Column struct {
	Name string `json:"name"`
	// Inferred is one of the schema types int, decimal, date, text; an
	// all-null column is text.
	Inferred string `json:"inferred"`
	// Declared is the contract type, empty when the contract does not name
	// the column.
	Declared string `json:"declared,omitempty"`
	Nulls    int    `json:"nulls"`
	// Mismatch explains why the values do not fit Declared.
	Mismatch string `json:"mismatch,omitempty"`
}

// Report is the finding for one table.
type Report struct {
	Table       string   `json:"table"`
	Rows        int      `json:"rows"`
	SkippedRows int      `json:"skipped_rows"`
	HasContract bool     `json:"has_contract"`
	Columns     []Column `json:"columns"`
	// Missing lists required contract columns absent from the extract.
	Missing []string `json:"missing,omitempty"`
}

// OK reports whether the extract would load without contract errors.
func (r Report) OK() bool {
	if len(r.Missing) > 0 {
		return false
	}
	for _, c := range r.Columns {
		if c.Mismatch != "" {
			return false
		}
	}
	return true
}

// Inspect builds the report for a parsed extract. skipped is the parser's
// count of dropped rows.
func Inspect(t *table.Table, skipped int) Report {
	c, hasContract := schema.Lookup(t.Name())
	declared := map[string]schema.Field{}
	for _, f := range c.Fields {
		declared[f.Name] = f
	}
	rep := Report{Table: t.Name(), Rows: t.Len(), SkippedRows: skipped, HasContract: hasContract}
	for _, name := range t.Columns() {
		vals, _ := t.Column(name)
		col := Column{Name: name, Declared: declared[name].Type}
		var present []string
		for _, v := range vals {
			v = builtin.NormalizeCell(v)
			if v == nil {
				col.Nulls++
				continue
			}
			present = append(present, table.Text(v))
		}
		col.Inferred = inferType(present)
		col.Mismatch = mismatch(col.Declared, col.Inferred)
		rep.Columns = append(rep.Columns, col)
	}
	for _, f := range c.Fields {
		if f.Required && !t.Has(f.Name) {
			rep.Missing = append(rep.Missing, f.Name)
		}
	}
	return rep
}

// inferType picks the narrowest type every value satisfies.
func inferType(values []string) string {
	switch {
	case len(values) == 0:
		return schema.TypeText
	case allMatch(values, isInt):
		return schema.TypeInt
	case allMatch(values, isFloat):
		return schema.TypeDecimal
	case allMatch(values, isDate):
		return schema.TypeDate
	}
	return schema.TypeText
}

func mismatch(declared, inferred string) string {
	switch declared {
	case "", schema.TypeText, schema.TypeKey:
		return ""
	case schema.TypeInt:
		if inferred == schema.TypeInt {
			return ""
		}
	case schema.TypeDecimal:
		if inferred == schema.TypeInt || inferred == schema.TypeDecimal {
			return ""
		}
	case schema.TypeDate:
		if inferred == schema.TypeDate {
			return ""
		}
	}
	return fmt.Sprintf("declared %s but values look like %s", declared, inferred)
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isInt accepts integers, including the "12.0" spelling of float exports.
func isInt(s string) bool {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == float64(int64(f))
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isDate(s string) bool {
	_, ok := table.Time(s)
	return ok
}
