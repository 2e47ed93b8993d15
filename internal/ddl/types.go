package ddl

import (
	"time"

	"insights/internal/table"
)

// Kind is the storage class inferred for a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// ColumnDef describes a single column of a table definition.
type ColumnDef struct {
	Name       string
	Kind       Kind
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name, possibly schema-qualified as
// "schema.table", and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect renders a TableDef for one SQL backend.
type Dialect struct {
	Name string
	// Quote quotes one identifier segment.
	Quote func(string) string
	// Types maps each Kind to the backend's column type.
	Types map[Kind]string
	// Guard wraps the CREATE TABLE so it is a no-op when the table exists.
	// When nil, "CREATE TABLE IF NOT EXISTS" is used.
	Guard func(fqn, quoted, create string) string
}

// InferKind picks the narrowest kind that holds every non-null value of a
// column. An all-null column is text.
func InferKind(values []any) Kind {
	kind, seen := KindText, false
	for _, v := range values {
		if table.IsNull(v) {
			continue
		}
		k := kindOf(v)
		switch {
		case !seen:
			kind, seen = k, true
		case k == kind:
		case (k == KindInt && kind == KindFloat) || (k == KindFloat && kind == KindInt):
			kind = KindFloat
		default:
			return KindText
		}
	}
	return kind
}

func kindOf(v any) Kind {
	switch v.(type) {
	case int, int32, int64:
		return KindInt
	case float32, float64:
		return KindFloat
	case bool:
		return KindBool
	case time.Time:
		return KindTime
	}
	return KindText
}
