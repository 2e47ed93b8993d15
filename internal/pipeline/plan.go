package pipeline

import (
	"fmt"

	"insights/internal/registry"
	"insights/internal/schema"
	"insights/internal/table"
	"insights/internal/transformer/builtin"
)

// Step joins one dimension table onto the running result.
type Step struct {
	// Table is the registry name of the dimension table.
	Table string
	// On lists the key columns on the running result.
	On []string
	// RightOn lists the dimension key columns; it defaults to On.
	RightOn []string
	// Columns, As and Suffix are passed to Join.
	Columns []string
	As      map[string]string
	Suffix  string
	Kind    JoinKind
}

// Plan is a fact table plus an ordered chain of dimension joins.
type Plan struct {
	Fact  string
	Steps []Step
}

// Run loads the fact table from reg and enriches it.
func (p Plan) Run(reg *registry.Registry) (*table.Table, error) {
	fact, err := reg.Get(p.Fact)
	if err != nil {
		return nil, err
	}
	return p.Enrich(reg, fact)
}

// Enrich applies the steps to fact, which may be a derived table rather than
// a registry entry. Key columns are normalized on both sides of every join.
func (p Plan) Enrich(reg *registry.Registry, fact *table.Table) (*table.Table, error) {
	out := fact
	for i, s := range p.Steps {
		dim, err := reg.Get(s.Table)
		if err != nil {
			return nil, err
		}
		if out, err = JoinStep(out, dim, s); err != nil {
			return nil, fmt.Errorf("plan %s step %d (%s): %w", fact.Name(), i, s.Table, err)
		}
	}
	return out, nil
}

// JoinStep normalizes the step's key columns on both tables and joins.
func JoinStep(left, dim *table.Table, s Step) (*table.Table, error) {
	rightOn := s.RightOn
	if len(rightOn) == 0 {
		rightOn = s.On
	}
	left, err := builtin.NormalizeKeys{Columns: s.On}.Apply(left)
	if err != nil {
		return nil, err
	}
	if dim, err = (builtin.NormalizeKeys{Columns: rightOn}).Apply(dim); err != nil {
		return nil, err
	}
	return Join(left, dim, JoinOptions{
		On: s.On, RightOn: rightOn, Kind: s.Kind,
		Columns: s.Columns, As: s.As, Suffix: s.Suffix,
	})
}

// Merge joins two derived tables on shared key columns, normalizing both.
func Merge(left, right *table.Table, kind JoinKind, on ...string) (*table.Table, error) {
	return JoinStep(left, right, Step{On: on, Kind: kind, Suffix: right.Name()})
}

// ChainOptions parameterizes the Product -> Subcategory -> Category chain.
type ChainOptions struct {
	// ProductColumns are extra Product columns to attach (Name, ListPrice...).
	ProductColumns []string
	// ProductAs renames attached Product columns.
	ProductAs map[string]string
	// Subcategory names the attached subcategory name column; empty omits it.
	Subcategory string
	// Category names the attached category name column; empty omits it.
	Category string
}

// CategoryChain returns the steps that resolve a fact's ProductID to its
// subcategory and category names.
func CategoryChain(o ChainOptions) []Step {
	steps := []Step{{
		Table:   schema.Product,
		On:      []string{"ProductID"},
		Columns: append(append([]string{}, o.ProductColumns...), "ProductSubcategoryID"),
		As:      o.ProductAs,
	}}
	sub := Step{
		Table:   schema.ProductSubcategory,
		On:      []string{"ProductSubcategoryID"},
		Columns: []string{"ProductCategoryID"},
	}
	if o.Subcategory != "" {
		sub.Columns = []string{"Name", "ProductCategoryID"}
		sub.As = map[string]string{"Name": o.Subcategory}
	}
	steps = append(steps, sub)
	if o.Category != "" {
		steps = append(steps, Step{
			Table:   schema.ProductCategory,
			On:      []string{"ProductCategoryID"},
			Columns: []string{"Name"},
			As:      map[string]string{"Name": o.Category},
		})
	}
	return steps
}

// ProductStep attaches Product columns by ProductID.
func ProductStep(cols ...string) Step {
	return Step{Table: schema.Product, On: []string{"ProductID"}, Columns: cols}
}

// LocationStep attaches the location name as col.
func LocationStep(col string) Step {
	return nameStep(schema.Location, "LocationID", col)
}

// ScrapReasonStep attaches the scrap reason name as col.
func ScrapReasonStep(col string) Step {
	return nameStep(schema.ScrapReason, "ScrapReasonID", col)
}

// TerritoryStep attaches the territory name as col.
func TerritoryStep(col string) Step {
	return nameStep(schema.SalesTerritory, "TerritoryID", col)
}

func nameStep(tbl, key, col string) Step {
	s := Step{Table: tbl, On: []string{key}, Columns: []string{"Name"}}
	if col != "" && col != "Name" {
		s.As = map[string]string{"Name": col}
	}
	return s
}
