package analysis

import (
	"time"

	"insights/internal/pipeline"
	"insights/internal/schema"
	"insights/internal/table"
)

const monthLayout = "2006-01"

// sumBy sums col into as per group.
func sumBy(t *table.Table, by []string, col, as string) (*table.Table, error) {
	return pipeline.GroupBy{
		Columns:  by,
		Measures: []pipeline.Measure{{Column: col, Reduce: pipeline.Sum, As: as}},
	}.Apply(t)
}

// totals sums one column of a fact table per product. The result is named
// after the output column so join collisions get a readable suffix.
func (c *Context) totals(fact, col, as string) (*table.Table, error) {
	t, err := c.Reg.Require(fact, "ProductID", col)
	if err != nil {
		return nil, err
	}
	out, err := sumBy(t, []string{"ProductID"}, col, as)
	if err != nil {
		return nil, err
	}
	return out.Named(as), nil
}

// measure is one per-product total attached by productFrame.
type measure struct {
	fact, column, as string
}

// productFrame starts from Product(ProductID, Name) and left-joins each
// per-product total. With fill set, products missing from a fact get 0.
func (c *Context) productFrame(fill bool, ms ...measure) (*table.Table, error) {
	p, err := c.Reg.Require(schema.Product, "ProductID", "Name")
	if err != nil {
		return nil, err
	}
	out, err := p.Select("ProductID", "Name")
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		tot, err := c.totals(m.fact, m.column, m.as)
		if err != nil {
			return nil, err
		}
		if out, err = pipeline.Merge(out, tot, pipeline.LeftJoin, "ProductID"); err != nil {
			return nil, err
		}
		if fill {
			if out, err = out.Fill(0.0, m.as); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// top sorts by col descending and keeps the context's row limit.
func (c *Context) top(t *table.Table, col string) (*table.Table, error) {
	out, err := t.SortBy(col, true)
	if err != nil {
		return nil, err
	}
	if c.limit > 0 {
		out = out.Head(c.limit)
	}
	return out, nil
}

// month appends a "2006-01" Month column derived from dateCol. Rows whose
// date does not parse are excluded and counted.
func (c *Context) month(t *table.Table, dateCol string) (*table.Table, error) {
	if err := t.Require(dateCol); err != nil {
		return nil, err
	}
	out := t.Map("Month", func(r table.Row) (any, bool) {
		d, ok := r.Time(dateCol)
		if !ok {
			return nil, false
		}
		return d.Format(monthLayout), true
	})
	c.exclude(t, out)
	return out, nil
}

// dates reads two date columns of r; ok is false when either is unparseable.
func dates(r table.Row, a, b string) (time.Time, time.Time, bool) {
	ta, ok1 := r.Time(a)
	tb, ok2 := r.Time(b)
	return ta, tb, ok1 && ok2
}

// sel projects the result of a previous step.
func sel(t *table.Table, err error, cols ...string) (*table.Table, error) {
	if err != nil {
		return nil, err
	}
	return t.Select(cols...)
}
