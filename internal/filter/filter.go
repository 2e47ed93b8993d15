// Package filter narrows a registry the way the dashboard's page filters do:
// pick a category, subcategory, product or location by name (or a minimum
// scrap quantity) and every fact table in scope keeps only the matching
// rows. The input registry is never modified; Apply returns a clone.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"insights/internal/analysis"
	"insights/internal/bitmap"
	"insights/internal/registry"
	"insights/internal/schema"
	"insights/internal/table"
	"insights/internal/transformer/builtin"
)

// Kind selects what a Filter matches on.
type Kind string

const (
	None        Kind = ""
	Category    Kind = "category"
	Subcategory Kind = "subcategory"
	Product     Kind = "product"
	Location    Kind = "location"
	MinScrap    Kind = "min-scrap"
)

// Kinds lists the supported kinds.
func Kinds() []Kind { return []Kind{Category, Subcategory, Product, Location, MinScrap} }

// Filter is one page filter.
type Filter struct {
	Kind Kind
	// Value is a dimension name for the name kinds.
	Value string
	// Threshold is the minimum ScrappedQty for MinScrap.
	Threshold float64
	// Tables limits which tables are narrowed. Empty means every table with
	// the matched column.
	Tables []string
}

// Parse builds a filter from its textual form, e.g. ("min-scrap", "50").
func Parse(kind, value string) (Filter, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case None, "none":
		return Filter{}, nil
	case Category, Subcategory, Product, Location:
		if strings.TrimSpace(value) == "" {
			return Filter{}, fmt.Errorf("filter %s: value is required", k)
		}
		return Filter{Kind: k, Value: strings.TrimSpace(value)}, nil
	case MinScrap:
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return Filter{}, fmt.Errorf("filter %s: %w", k, err)
		}
		return Filter{Kind: k, Threshold: v}, nil
	}
	return Filter{}, fmt.Errorf("unknown filter kind %q (want one of %v)", kind, Kinds())
}

// ForPage scopes f to the tables the page's filter narrows: inventory
// filters touch ProductInventory only, production filters touch work orders.
// Sales and advanced filters narrow every table carrying the key, except
// that a location outside the inventory page only narrows WorkOrderRouting.
func ForPage(p analysis.Page, f Filter) Filter {
	switch {
	case p == analysis.PageInventory:
		f.Tables = []string{schema.ProductInventory}
	case f.Kind == Location:
		f.Tables = []string{schema.WorkOrderRouting}
	case p == analysis.PageProduction:
		f.Tables = []string{schema.WorkOrder, schema.WorkOrderRouting}
	}
	return f
}

// Apply returns a clone of reg with the filter's tables narrowed.
func Apply(reg *registry.Registry, f Filter) (*registry.Registry, error) {
	out := reg.Clone()
	switch f.Kind {
	case None:
		return out, nil
	case MinScrap:
		wo, ok := out.Lookup(schema.WorkOrder)
		if !ok || !inScope(f, schema.WorkOrder) {
			return out, nil
		}
		if err := wo.Require("ScrappedQty"); err != nil {
			return nil, err
		}
		narrowed := wo.Filter(func(r table.Row) bool {
			q, ok := r.Float("ScrappedQty")
			return ok && q >= f.Threshold
		})
		return out, out.Put(narrowed)
	case Location:
		ids, err := namedKeys(reg, schema.Location, "LocationID", f.Value)
		if err != nil {
			return nil, err
		}
		return out, narrow(out, f, "LocationID", newSet(ids))
	}

	ids, err := productIDs(reg, f)
	if err != nil {
		return nil, err
	}
	return out, narrow(out, f, "ProductID", newSet(ids))
}

func inScope(f Filter, name string) bool {
	return len(f.Tables) == 0 || lo.Contains(f.Tables, name)
}

func narrow(reg *registry.Registry, f Filter, col string, ids idSet) error {
	for _, name := range reg.Names() {
		t, _ := reg.Lookup(name)
		if !inScope(f, name) || !t.Has(col) {
			continue
		}
		narrowed := t.Filter(func(r table.Row) bool {
			k := builtin.CanonicalKey(r.Get(col))
			return k != nil && ids.has(table.Text(k))
		})
		if err := reg.Put(narrowed); err != nil {
			return err
		}
	}
	return nil
}

// productIDs resolves a name filter to the canonical ProductIDs it selects.
func productIDs(reg *registry.Registry, f Filter) ([]string, error) {
	products, err := reg.Require(schema.Product, "ProductID", "Name", "ProductSubcategoryID")
	if err != nil {
		return nil, err
	}
	var subcats []string
	switch f.Kind {
	case Product:
		return keysWhere(products, "ProductID", func(r table.Row) bool { return r.Text("Name") == f.Value }), nil
	case Subcategory:
		if subcats, err = namedKeys(reg, schema.ProductSubcategory, "ProductSubcategoryID", f.Value); err != nil {
			return nil, err
		}
	case Category:
		cats, err := namedKeys(reg, schema.ProductCategory, "ProductCategoryID", f.Value)
		if err != nil {
			return nil, err
		}
		sub, err := reg.Require(schema.ProductSubcategory, "ProductSubcategoryID", "ProductCategoryID")
		if err != nil {
			return nil, err
		}
		subcats = keysWhere(sub, "ProductSubcategoryID", memberOf("ProductCategoryID", cats))
	default:
		return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
	}
	return keysWhere(products, "ProductID", memberOf("ProductSubcategoryID", subcats)), nil
}

// namedKeys returns the canonical keys of the rows of a dimension whose
// Name equals name.
func namedKeys(reg *registry.Registry, dim, key, name string) ([]string, error) {
	t, err := reg.Require(dim, key, "Name")
	if err != nil {
		return nil, err
	}
	return keysWhere(t, key, func(r table.Row) bool { return r.Text("Name") == name }), nil
}

func keysWhere(t *table.Table, key string, keep func(table.Row) bool) []string {
	var out []string
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		if !keep(r) {
			continue
		}
		if k := builtin.CanonicalKey(r.Get(key)); k != nil {
			out = append(out, table.Text(k))
		}
	}
	return lo.Uniq(out)
}

func memberOf(col string, keys []string) func(table.Row) bool {
	set := lo.SliceToMap(keys, func(k string) (string, struct{}) { return k, struct{}{} })
	return func(r table.Row) bool {
		k := builtin.CanonicalKey(r.Get(col))
		if k == nil {
			return false
		}
		_, ok := set[table.Text(k)]
		return ok
	}
}

// idSet is a set of canonical keys. Integral keys go into a bitmap.
type idSet struct {
	bits *bitmap.Bitmap
	keys map[string]struct{}
}

// denseIDs is the largest id a bitmap is built for regardless of how few ids
// there are. Sparser sets fall back to a map.
const denseIDs = 1 << 16

func newSet(ids []string) idSet {
	nums := make([]int, 0, len(ids))
	limit := max(denseIDs, 64*len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 || n > limit {
			return idSet{keys: lo.SliceToMap(ids, func(k string) (string, struct{}) { return k, struct{}{} })}
		}
		nums = append(nums, n)
	}
	return idSet{bits: bitmap.Of(nums...)}
}

func (s idSet) has(key string) bool {
	if s.bits != nil {
		n, err := strconv.Atoi(key)
		return err == nil && s.bits.Has(n)
	}
	_, ok := s.keys[key]
	return ok
}
