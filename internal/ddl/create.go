// Package ddl is a small, backend-agnostic model of SQL table definitions.
// A TableDef is inferred from an in-memory table and rendered to a CREATE
// TABLE statement by a backend's Dialect.
package ddl

import (
	"fmt"
	"strings"

	"insights/internal/table"
)

// FromTable infers a definition for storing t as fqn. Columns follow t's
// order; every column is nullable except those in pk.
func FromTable(fqn string, t *table.Table, pk ...string) (TableDef, error) {
	if strings.TrimSpace(fqn) == "" {
		return TableDef{}, fmt.Errorf("ddl: table FQN must not be empty")
	}
	keys := make(map[string]bool, len(pk))
	for _, k := range pk {
		if !t.Has(k) {
			return TableDef{}, &table.MissingColumnError{Table: t.Name(), Column: k}
		}
		keys[k] = true
	}
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(t.Columns()))}
	for _, c := range t.Columns() {
		vals, _ := t.Column(c)
		def.Columns = append(def.Columns, ColumnDef{
			Name:       c,
			Kind:       InferKind(vals),
			Nullable:   !keys[c],
			PrimaryKey: keys[c],
		})
	}
	return def, nil
}

// BuildCreateTableSQL renders t in dialect d. Primary-key columns are always
// NOT NULL and collected into one PRIMARY KEY clause.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	quote := d.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ, ok := d.Types[c.Kind]
		if !ok {
			return "", fmt.Errorf("ddl: %s has no type for column %s", d.Name, name)
		}
		def := quote(name) + " " + typ
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := QuoteFQN(fqn, quote)
	body := fmt.Sprintf("(\n  %s\n)", strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		return d.Guard(fqn, quoted, "CREATE TABLE "+quoted+" "+body), nil
	}
	return "CREATE TABLE IF NOT EXISTS " + quoted + " " + body + ";", nil
}

// QuoteFQN quotes each dotted segment of name. Empty segments are dropped.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, quote(p))
		}
	}
	return strings.Join(out, ".")
}
