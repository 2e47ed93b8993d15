package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"insights/internal/analysis"
	"insights/internal/registry"
	"insights/internal/schema"
	"insights/internal/table"
)

func fixture(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	put := func(name string, cols []string, rows [][]any) {
		require.NoError(t, r.Put(table.MustNew(name, cols, rows)))
	}
	put(schema.ProductCategory, []string{"ProductCategoryID", "Name"}, [][]any{{"1", "Bikes"}, {"2", "Components"}})
	put(schema.ProductSubcategory, []string{"ProductSubcategoryID", "Name", "ProductCategoryID"}, [][]any{
		{"10", "Road Bikes", "1"},
		{"20", "Brakes", "2"},
	})
	put(schema.Product, []string{"ProductID", "Name", "ProductSubcategoryID"}, [][]any{
		{int64(1), "Road-150", 10.0},
		{int64(2), "Brake-X", "20"},
		{int64(3), "Bolt", "20"},
	})
	put(schema.Location, []string{"LocationID", "Name"}, [][]any{{"1", "Tool Crib"}, {"2", "Paint Shop"}})
	put(schema.ProductInventory, []string{"ProductID", "LocationID", "Quantity"}, [][]any{
		{"1", "1", int64(10)},
		{"2", "2", int64(50)},
		{"3", "2", int64(7)},
	})
	put(schema.WorkOrder, []string{"ProductID", "ScrappedQty"}, [][]any{
		{1.0, int64(0)},
		{2.0, int64(60)},
		{3.0, nil},
	})
	put(schema.WorkOrderRouting, []string{"ProductID", "LocationID"}, [][]any{
		{int64(1), int64(1)},
		{int64(2), int64(2)},
	})
	return r
}

func lens(t *testing.T, r *registry.Registry, names ...string) []int {
	t.Helper()
	out := make([]int, len(names))
	for i, n := range names {
		tb, err := r.Get(n)
		require.NoError(t, err)
		out[i] = tb.Len()
	}
	return out
}

/* TestParse verifies kinds, required values and numeric thresholds. */
func TestParse(t *testing.T) {
	f, err := Parse("Min-Scrap", "50")
	require.NoError(t, err)
	require.Equal(t, Filter{Kind: MinScrap, Threshold: 50}, f)

	f, err = Parse("none", "")
	require.NoError(t, err)
	require.Equal(t, None, f.Kind)

	_, err = Parse("product", " ")
	require.Error(t, err)
	_, err = Parse("min-scrap", "lots")
	require.Error(t, err)
	_, err = Parse("colour", "red")
	require.Error(t, err)
}

/* TestApplyScopes verifies each kind narrows only the tables in scope. */
func TestApplyScopes(t *testing.T) {
	tables := []string{schema.ProductInventory, schema.WorkOrder, schema.WorkOrderRouting}
	tests := []struct {
		name string
		f    Filter
		want []int
	}{
		{"category on inventory page", ForPage(analysis.PageInventory, Filter{Kind: Category, Value: "Components"}), []int{2, 3, 2}},
		{"subcategory on production page", ForPage(analysis.PageProduction, Filter{Kind: Subcategory, Value: "Road Bikes"}), []int{3, 1, 1}},
		{"product everywhere", ForPage(analysis.PageSales, Filter{Kind: Product, Value: "Bolt"}), []int{1, 1, 0}},
		{"location on production page", ForPage(analysis.PageProduction, Filter{Kind: Location, Value: "Paint Shop"}), []int{3, 3, 1}},
		{"location on inventory page", ForPage(analysis.PageInventory, Filter{Kind: Location, Value: "Paint Shop"}), []int{2, 3, 2}},
		{"location on advanced page", ForPage(analysis.PageAdvanced, Filter{Kind: Location, Value: "Paint Shop"}), []int{3, 3, 1}},
		{"location on sales page", ForPage(analysis.PageSales, Filter{Kind: Location, Value: "Tool Crib"}), []int{3, 3, 1}},
		{"min scrap", Filter{Kind: MinScrap, Threshold: 50}, []int{3, 1, 2}},
		{"unknown name empties scope", ForPage(analysis.PageInventory, Filter{Kind: Product, Value: "Nope"}), []int{0, 3, 2}},
		{"none", Filter{}, []int{3, 3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := fixture(t)
			out, err := Apply(reg, tt.f)
			require.NoError(t, err)
			require.Equal(t, tt.want, lens(t, out, tables...))
			require.Equal(t, []int{3, 3, 2}, lens(t, reg, tables...), "source registry mutated")
		})
	}
}

/* TestApplyMissingDimension verifies a name filter needs its dimension table. */
func TestApplyMissingDimension(t *testing.T) {
	reg := registry.New()
	_, err := Apply(reg, Filter{Kind: Product, Value: "Bolt"})
	require.ErrorIs(t, err, table.ErrMissingTable)
}

/* TestIDSetFallsBackForTextKeys verifies non-integral ids use the map set. */
func TestIDSetFallsBackForTextKeys(t *testing.T) {
	s := newSet([]string{"1", "BK-R93R"})
	require.Nil(t, s.bits)
	require.True(t, s.has("BK-R93R"))
	require.False(t, s.has("2"))

	n := newSet([]string{"707", "3"})
	require.NotNil(t, n.bits)
	require.True(t, n.has("707"))
	require.False(t, n.has("x"))
}

/* TestIDSetSparseIDsUseMap verifies large sparse ids never size a bitmap. */
func TestIDSetSparseIDsUseMap(t *testing.T) {
	s := newSet([]string{"9000000000000000"})
	require.Nil(t, s.bits)
	require.True(t, s.has("9000000000000000"))
	require.False(t, s.has("9000000000000001"))

	s = newSet([]string{"3", "10000000000"})
	require.Nil(t, s.bits)
	require.True(t, s.has("3"))
	require.True(t, s.has("10000000000"))

	dense := newSet([]string{"65536"})
	require.NotNil(t, dense.bits)
	require.True(t, dense.has("65536"))
}
