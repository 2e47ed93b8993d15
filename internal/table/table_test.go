package table

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func fixture() *Table {
	return MustNew("ProductInventory",
		[]string{"ProductID", "LocationID", "Quantity"},
		[][]any{
			{int64(1), int64(10), int64(5)},
			{int64(2), int64(10), nil},
			{int64(3), int64(20), int64(7)},
		})
}

/* TestNewRejectsBadShapes verifies duplicate columns and ragged rows fail. */
func TestNewRejectsBadShapes(t *testing.T) {
	if _, err := New("x", []string{"a", "a"}, nil); err == nil {
		t.Fatal("expected duplicate column error")
	}
	if _, err := New("x", []string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Fatal("expected ragged row error")
	}
}

/* TestOperationsDoNotMutate verifies derived tables leave the source intact. */
func TestOperationsDoNotMutate(t *testing.T) {
	src := fixture()
	before := src.Rows()

	if _, err := src.Fill(int64(0), "Quantity"); err != nil {
		t.Fatal(err)
	}
	src.Map("Quantity", func(r Row) (any, bool) { return int64(99), true })
	if _, err := src.SortBy("Quantity", true); err != nil {
		t.Fatal(err)
	}
	src.Filter(func(r Row) bool { return false })

	if !reflect.DeepEqual(src.Rows(), before) {
		t.Fatalf("source mutated: %v", src.Rows())
	}
}

/* TestSortNullsLast verifies nulls sort last in both directions. */
func TestSortNullsLast(t *testing.T) {
	tests := []struct {
		name string
		desc bool
		want []any
	}{
		{"asc", false, []any{int64(5), int64(7), nil}},
		{"desc", true, []any{int64(7), int64(5), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixture().SortBy("Quantity", tt.desc)
			if err != nil {
				t.Fatal(err)
			}
			col, _ := got.Column("Quantity")
			if !reflect.DeepEqual(col, tt.want) {
				t.Errorf("got %v, want %v", col, tt.want)
			}
		})
	}
}

/* TestMapExcludesRejectedRows verifies rows rejected by the deriver are dropped. */
func TestMapExcludesRejectedRows(t *testing.T) {
	got := fixture().Map("Double", func(r Row) (any, bool) {
		q, ok := r.Float("Quantity")
		if !ok {
			return nil, false
		}
		return q * 2, true
	})
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	col, _ := got.Column("Double")
	if !reflect.DeepEqual(col, []any{10.0, 14.0}) {
		t.Errorf("Double = %v", col)
	}
}

/* TestSelectMissingColumn verifies the typed error surfaces. */
func TestSelectMissingColumn(t *testing.T) {
	_, err := fixture().Select("Nope")
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	var mc *MissingColumnError
	if !errors.As(err, &mc) || mc.Column != "Nope" || mc.Table != "ProductInventory" {
		t.Fatalf("err = %#v", err)
	}
}

/* TestKeyFlagsFollowRename verifies canonical-key flags survive renames and projections. */
func TestKeyFlagsFollowRename(t *testing.T) {
	k, err := fixture().MarkKeys("ProductID")
	if err != nil {
		t.Fatal(err)
	}
	r, err := k.Rename(map[string]string{"ProductID": "ID"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsKey("ID") || r.IsKey("ProductID") {
		t.Fatal("key flag did not follow rename")
	}
	s, _ := r.Select("Quantity", "ID")
	if !s.IsKey("ID") {
		t.Fatal("key flag lost on select")
	}
	m := s.WithColumn("ID", func(Row) any { return "x" })
	if m.IsKey("ID") {
		t.Fatal("overwritten column kept key flag")
	}
}

/* TestValueReaders verifies the loose cell readers. */
func TestValueReaders(t *testing.T) {
	if f, ok := Float(" 12.5 "); !ok || f != 12.5 {
		t.Errorf("Float(string) = %v %v", f, ok)
	}
	if _, ok := Float(math.NaN()); ok {
		t.Error("NaN read as number")
	}
	if _, ok := Float("abc"); ok {
		t.Error("text read as number")
	}
	want := time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2014-06-30", "2014-06-30 00:00:00.000", "6/30/2014"} {
		if got, ok := Time(s); !ok || !got.Equal(want) {
			t.Errorf("Time(%q) = %v %v", s, got, ok)
		}
	}
	if !IsNull("  ") || IsNull(int64(0)) {
		t.Error("IsNull misclassified")
	}
	if Compare("10", int64(9)) <= 0 {
		t.Error("numeric compare fell back to text")
	}
}

/* TestDistinct verifies null values are not counted. */
func TestDistinct(t *testing.T) {
	n, err := fixture().Distinct("LocationID")
	if err != nil || n != 2 {
		t.Fatalf("Distinct = %d, %v", n, err)
	}
}

/*
TestAppendKeyExactIntegers verifies integer cells past 2^53 encode distinctly
and integral floats share the integer encoding.
*/
func TestAppendKeyExactIntegers(t *testing.T) {
	a := string(AppendKey(nil, int64(9007199254740993)))
	b := string(AppendKey(nil, int64(9007199254740992)))
	if a == b {
		t.Fatalf("keys collapsed: %q", a)
	}
	if got, want := string(AppendKey(nil, 12.0)), string(AppendKey(nil, int64(12))); got != want {
		t.Fatalf("AppendKey(12.0) = %q, want %q", got, want)
	}
	if got := string(AppendKey(nil, 12.5)); got != "n12.5\x1f" {
		t.Fatalf("AppendKey(12.5) = %q", got)
	}
}
