package probe

import (
	"reflect"
	"testing"

	"insights/internal/table"
)

/* TestInferType verifies the narrowest type wins and nulls are ignored. */
func TestInferType(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", nil, "text"},
		{"ints", []string{"1", "408", "-3"}, "int"},
		{"float spelled ints", []string{"1.0", "2"}, "int"},
		{"decimals", []string{"1431.50", "2"}, "decimal"},
		{"dates", []string{"2014-08-08", "2011-05-31 00:00:00"}, "date"},
		{"text", []string{"Bikes", "1"}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferType(tt.in); got != tt.want {
				t.Fatalf("inferType(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

/* TestInspect verifies nulls, contract mismatches and missing columns. */
func TestInspect(t *testing.T) {
	inv := table.MustNew("ProductInventory", []string{"ProductID", "LocationID", "Quantity", "Shelf"}, [][]any{
		{"1", "1", "408", "A"},
		{"2", "6", "lots", "NA"},
		{"3", "50", nil, "B"},
	})
	rep := Inspect(inv, 2)
	if rep.OK() {
		t.Fatal("report should not be OK")
	}
	if !rep.HasContract || rep.Rows != 3 || rep.SkippedRows != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if !reflect.DeepEqual(rep.Missing, []string{"ModifiedDate"}) {
		t.Fatalf("Missing = %v", rep.Missing)
	}
	q := rep.Columns[2]
	if q.Declared != "int" || q.Inferred != "text" || q.Mismatch == "" || q.Nulls != 1 {
		t.Fatalf("Quantity = %+v", q)
	}
	shelf := rep.Columns[3]
	if shelf.Declared != "" || shelf.Nulls != 1 || shelf.Mismatch != "" {
		t.Fatalf("Shelf = %+v", shelf)
	}
}

/* TestInspectWithoutContract verifies unknown tables are only described. */
func TestInspectWithoutContract(t *testing.T) {
	rep := Inspect(table.MustNew("Vendor", []string{"BusinessEntityID"}, [][]any{{"1492"}}), 0)
	if rep.HasContract || !rep.OK() || rep.Columns[0].Inferred != "int" {
		t.Fatalf("report = %+v", rep)
	}
}
