// Package table provides the in-memory rectangular dataset every stage of the
// pipeline passes around: an ordered list of column names and rows of loosely
// typed cells (nil, string, int64, float64, time.Time, bool).
//
// Tables are immutable once built. Every operation returns a new Table and
// leaves its receiver untouched; rows that an operation does not change are
// shared between the input and the output, so callers must never write into
// the slices returned by Rows or Row.Values.
//
// A Table also remembers which of its columns hold canonical join keys (see
// transformer/builtin.NormalizeKeys). The join planner refuses to merge on a
// column that has not been marked.
package table

import (
	"fmt"
	"sort"
	"time"
)

// Table is a named, immutable rectangular dataset.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]any
	keys    map[string]bool
}

// New builds a table. It takes ownership of rows; every row must have exactly
// len(columns) cells and column names must be unique.
func New(name string, columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("table %q: duplicate column %q", name, c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("table %q: row %d has %d cells, want %d", name, i, len(r), len(columns))
		}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{name: name, columns: cols, index: index, rows: rows}, nil
}

// MustNew is New that panics on error. It is meant for fixtures.
func MustNew(name string, columns []string, rows [][]any) *Table {
	t, err := New(name, columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// derive returns a table sharing t's schema and key flags with new rows.
func (t *Table) derive(rows [][]any) *Table {
	return &Table{name: t.name, columns: t.columns, index: t.index, rows: rows, keys: t.keys}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Named returns a copy of t carrying a different name.
func (t *Table) Named(name string) *Table {
	out := t.derive(t.rows)
	out.name = name
	return out
}

// Columns returns a copy of the ordered column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of col, or a MissingColumnError.
func (t *Table) Index(col string) (int, error) {
	i, ok := t.index[col]
	if !ok {
		return -1, &MissingColumnError{Table: t.name, Column: col}
	}
	return i, nil
}

// Require checks that every listed column exists.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if _, err := t.Index(c); err != nil {
			return err
		}
	}
	return nil
}

// IsKey reports whether col has been marked as a canonical join key.
func (t *Table) IsKey(col string) bool { return t.keys[col] }

// Value returns the cell at row i in column col, or nil when the column does
// not exist.
func (t *Table) Value(i int, col string) any {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Rows returns the rows. The returned cells must not be modified.
func (t *Table) Rows() [][]any {
	out := make([][]any, len(t.rows))
	copy(out, t.rows)
	return out
}

// Column returns a copy of one column's cells.
func (t *Table) Column(col string) ([]any, error) {
	j, err := t.Index(col)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Records returns one map per row keyed by column name.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		m := make(map[string]any, len(t.columns))
		for j, c := range t.columns {
			m[c] = r[j]
		}
		out[i] = m
	}
	return out
}

// MarkKeys returns a copy of t with the listed columns flagged as canonical
// join keys. Values are not inspected.
func (t *Table) MarkKeys(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(t.keys)+len(cols))
	for k, v := range t.keys {
		keys[k] = v
	}
	for _, c := range cols {
		keys[c] = true
	}
	out := t.derive(t.rows)
	out.keys = keys
	return out, nil
}

// Select projects t onto cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	pos := make([]int, len(cols))
	for i, c := range cols {
		j, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		pos[i] = j
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		nr := make([]any, len(pos))
		for k, j := range pos {
			nr[k] = r[j]
		}
		rows[i] = nr
	}
	out, err := New(t.name, cols, rows)
	if err != nil {
		return nil, err
	}
	out.keys = subsetKeys(t.keys, cols)
	return out, nil
}

// Rename renames columns using from -> to. Key flags follow the column.
func (t *Table) Rename(names map[string]string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c
		if to, ok := names[c]; ok {
			cols[i] = to
		}
	}
	for from := range names {
		if !t.Has(from) {
			return nil, &MissingColumnError{Table: t.name, Column: from}
		}
	}
	out, err := New(t.name, cols, t.rows)
	if err != nil {
		return nil, err
	}
	if len(t.keys) > 0 {
		out.keys = make(map[string]bool, len(t.keys))
		for k := range t.keys {
			if to, ok := names[k]; ok {
				out.keys[to] = true
			} else {
				out.keys[k] = true
			}
		}
	}
	return out, nil
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([][]any, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, r)
		}
	}
	return t.derive(rows)
}

// Map sets column col to fn(row) on every row, appending the column when it
// does not exist yet. Rows for which fn reports false are excluded from the
// result. Replacing an existing column clears its key flag.
func (t *Table) Map(col string, fn func(Row) (any, bool)) *Table {
	j, exists := t.index[col]
	cols := t.columns
	if !exists {
		cols = append(append(make([]string, 0, len(t.columns)+1), t.columns...), col)
		j = len(t.columns)
	}
	rows := make([][]any, 0, len(t.rows))
	for i, r := range t.rows {
		v, ok := fn(Row{t: t, i: i})
		if !ok {
			continue
		}
		nr := make([]any, len(cols))
		copy(nr, r)
		nr[j] = v
		rows = append(rows, nr)
	}
	out := &Table{name: t.name, columns: cols, index: t.index, rows: rows, keys: t.keys}
	if !exists {
		out.index = make(map[string]int, len(cols))
		for k, c := range cols {
			out.index[c] = k
		}
	}
	if t.keys[col] {
		out.keys = make(map[string]bool, len(t.keys))
		for k, v := range t.keys {
			if k != col {
				out.keys[k] = v
			}
		}
	}
	return out
}

// WithColumn is Map without row exclusion.
func (t *Table) WithColumn(col string, fn func(Row) any) *Table {
	return t.Map(col, func(r Row) (any, bool) { return fn(r), true })
}

// Fill replaces nulls in the listed columns with v.
func (t *Table) Fill(v any, cols ...string) (*Table, error) {
	pos := make([]int, len(cols))
	for i, c := range cols {
		j, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		pos[i] = j
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		var nr []any
		for _, j := range pos {
			if IsNull(r[j]) {
				if nr == nil {
					nr = make([]any, len(r))
					copy(nr, r)
				}
				nr[j] = v
			}
		}
		if nr == nil {
			nr = r
		}
		rows[i] = nr
	}
	return t.derive(rows), nil
}

// DropNull removes rows with a null in any of the listed columns.
func (t *Table) DropNull(cols ...string) (*Table, error) {
	pos := make([]int, len(cols))
	for i, c := range cols {
		j, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		pos[i] = j
	}
	rows := make([][]any, 0, len(t.rows))
next:
	for _, r := range t.rows {
		for _, j := range pos {
			if IsNull(r[j]) {
				continue next
			}
		}
		rows = append(rows, r)
	}
	return t.derive(rows), nil
}

// SortKey orders by one column.
type SortKey struct {
	Column string
	Desc   bool
}

// Sort orders rows by the keys, first key most significant. The sort is
// stable and nulls always come last, whatever the direction.
func (t *Table) Sort(keys ...SortKey) (*Table, error) {
	pos := make([]int, len(keys))
	for i, k := range keys {
		j, err := t.Index(k.Column)
		if err != nil {
			return nil, err
		}
		pos[i] = j
	}
	rows := make([][]any, len(t.rows))
	copy(rows, t.rows)
	sort.SliceStable(rows, func(a, b int) bool {
		for i, j := range pos {
			va, vb := rows[a][j], rows[b][j]
			na, nb := IsNull(va), IsNull(vb)
			switch {
			case na && nb:
				continue
			case na:
				return false
			case nb:
				return true
			}
			c := Compare(va, vb)
			if c == 0 {
				continue
			}
			if keys[i].Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return t.derive(rows), nil
}

// SortBy sorts on a single column.
func (t *Table) SortBy(col string, desc bool) (*Table, error) {
	return t.Sort(SortKey{Column: col, Desc: desc})
}

// Head keeps the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.rows) {
		return t.derive(t.rows)
	}
	return t.derive(t.rows[:n:n])
}

// Distinct counts the distinct non-null values of col.
func (t *Table) Distinct(col string) (int, error) {
	j, err := t.Index(col)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	var buf []byte
	for _, r := range t.rows {
		if IsNull(r[j]) {
			continue
		}
		buf = AppendKey(buf[:0], r[j])
		seen[string(buf)] = struct{}{}
	}
	return len(seen), nil
}

func subsetKeys(keys map[string]bool, cols []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]bool)
	for _, c := range cols {
		if keys[c] {
			out[c] = true
		}
	}
	return out
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Get returns the cell in col, or nil when the column does not exist.
func (r Row) Get(col string) any { return r.t.Value(r.i, col) }

// Float reads the cell in col as a number.
func (r Row) Float(col string) (float64, bool) { return Float(r.Get(col)) }

// FloatOr reads the cell in col as a number, defaulting when it is null or
// not numeric.
func (r Row) FloatOr(col string, def float64) float64 {
	if f, ok := Float(r.Get(col)); ok {
		return f
	}
	return def
}

// Time reads the cell in col as a timestamp.
func (r Row) Time(col string) (time.Time, bool) { return Time(r.Get(col)) }

// Text renders the cell in col.
func (r Row) Text(col string) string { return Text(r.Get(col)) }

// Values returns the row cells. They must not be modified.
func (r Row) Values() []any { return r.t.rows[r.i] }
