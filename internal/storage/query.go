package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"insights/internal/ddl"
	"insights/internal/table"
)

// SelectSQL builds the SELECT used by LoadTable. Identifiers are quoted with
// quote; a dotted source is quoted per segment.
func SelectSQL(ph sq.PlaceholderFormat, quote func(string) string, source string, columns []string) (string, []any, error) {
	cols := []string{"*"}
	if len(columns) > 0 {
		cols = make([]string, len(columns))
		for i, c := range columns {
			cols[i] = quote(c)
		}
	}
	return sq.Select(cols...).From(ddl.QuoteFQN(source, quote)).PlaceholderFormat(ph).ToSql()
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryTable runs the SELECT for source on a database/sql connection and
// collects the result into a table named name.
func QueryTable(ctx context.Context, q Querier, ph sq.PlaceholderFormat, quote func(string) string, name, source string, columns []string) (*table.Table, error) {
	query, args, err := SelectSQL(ph, quote, source, columns)
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", source, err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", source, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", source, err)
		}
		for i, v := range vals {
			vals[i] = Cell(v)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return table.New(name, cols, out)
}

// Cell converts a driver value to a table cell. Byte slices (decimals and
// text from several drivers) become strings.
func Cell(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
