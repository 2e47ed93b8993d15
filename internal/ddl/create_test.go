package ddl

import (
	"strings"
	"testing"
	"time"

	"insights/internal/table"
)

var testDialect = Dialect{
	Name:  "test",
	Quote: func(s string) string { return `"` + s + `"` },
	Types: map[Kind]string{KindText: "TEXT", KindInt: "BIGINT", KindFloat: "DOUBLE", KindBool: "BOOLEAN", KindTime: "TIMESTAMP"},
}

// TestInferKind verifies widening from int to float and mixed kinds to text.
func TestInferKind(t *testing.T) {
	t.Parallel()
	now := time.Date(2014, 8, 8, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   []any
		want Kind
	}{
		{"all null", []any{nil, nil}, KindText},
		{"ints", []any{int64(1), nil, int64(3)}, KindInt},
		{"int then float", []any{int64(1), 2.5}, KindFloat},
		{"dates", []any{now, nil}, KindTime},
		{"mixed", []any{int64(1), "x"}, KindText},
		{"bools", []any{true, false}, KindBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferKind(tt.in); got != tt.want {
				t.Fatalf("InferKind(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestBuildCreateTableSQL verifies rendering and input validation.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		def     TableDef
		want    string
		wantErr string
	}{
		{
			name:    "empty FQN",
			def:     TableDef{Columns: []ColumnDef{{Name: "id"}}},
			wantErr: "FQN must not be empty",
		},
		{
			name:    "no columns",
			def:     TableDef{FQN: "t"},
			wantErr: "at least one column",
		},
		{
			name:    "blank column",
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: " "}}},
			wantErr: "empty name",
		},
		{
			name: "schema qualified with key",
			def: TableDef{FQN: "insights.summary", Columns: []ColumnDef{
				{Name: "RunID", Kind: KindText, PrimaryKey: true, Nullable: true},
				{Name: "Total", Kind: KindFloat, Nullable: true},
			}},
			want: "CREATE TABLE IF NOT EXISTS \"insights\".\"summary\" (\n  \"RunID\" TEXT NOT NULL,\n  \"Total\" DOUBLE,\n  PRIMARY KEY (\"RunID\")\n);",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCreateTableSQL(tt.def, testDialect)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

// TestBuildCreateTableSQLGuard verifies a dialect guard replaces IF NOT EXISTS.
func TestBuildCreateTableSQLGuard(t *testing.T) {
	d := testDialect
	d.Guard = func(fqn, quoted, create string) string { return "IF MISSING " + fqn + " " + create }
	got, err := BuildCreateTableSQL(TableDef{FQN: "s", Columns: []ColumnDef{{Name: "a", Nullable: true}}}, d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, `IF MISSING s CREATE TABLE "s" (`) {
		t.Fatalf("got %q", got)
	}
}

// TestFromTable verifies inferred kinds and key validation.
func TestFromTable(t *testing.T) {
	tb := table.MustNew("Summary", []string{"CategoryName", "Quantity"}, [][]any{
		{"Bikes", int64(15)},
		{nil, int64(3)},
	})
	def, err := FromTable("summary", tb, "Quantity")
	if err != nil {
		t.Fatal(err)
	}
	if def.Columns[0].Kind != KindText || !def.Columns[0].Nullable {
		t.Fatalf("CategoryName = %+v", def.Columns[0])
	}
	if def.Columns[1].Kind != KindInt || !def.Columns[1].PrimaryKey {
		t.Fatalf("Quantity = %+v", def.Columns[1])
	}
	if _, err := FromTable("summary", tb, "Nope"); err == nil {
		t.Fatal("expected missing key column error")
	}
}
