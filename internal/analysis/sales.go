package analysis

import (
	"insights/internal/metric"
	"insights/internal/pipeline"
	"insights/internal/schema"
	"insights/internal/table"
)

func salesDefs() []Definition {
	return []Definition{
		{
			Name:   "top-suppliers",
			Title:  "Top suppliers by sales value",
			Page:   PageSales,
			Tables: []string{schema.SalesOrderDetail, schema.Product},
			TopN:   10,
			Run:    topSuppliers,
		},
		{
			Name:   "sales-by-territory",
			Title:  "Sales by territory",
			Page:   PageSales,
			Tables: []string{schema.SalesOrderHeader},
			Run:    salesByTerritory,
		},
		{
			Name:   "us-region-sales",
			Title:  "US regional sales",
			Page:   PageSales,
			Tables: []string{schema.SalesTerritory},
			Run:    usRegionSales,
		},
		{
			Name:   "sales-by-country",
			Title:  "Sales by country",
			Page:   PageSales,
			Tables: []string{schema.SalesTerritory},
			Run:    salesByCountry,
		},
		{
			Name:   "demand-vs-supply",
			Title:  "Demand vs supply by product",
			Page:   PageSales,
			Tables: []string{schema.Product, schema.ProductInventory, schema.SalesOrderDetail},
			Run:    demandVsSupply,
		},
		{
			Name:   "fill-rate-by-category",
			Title:  "Fill rate by product category",
			Page:   PageSales,
			Tables: []string{schema.SalesOrderDetail, schema.WorkOrder, schema.Product, schema.ProductSubcategory, schema.ProductCategory},
			Run:    fillRateByCategory,
		},
	}
}

// topSuppliers ranks product models, the closest thing to a supplier the
// schema has, by sales value.
func topSuppliers(c *Context) (*table.Table, error) {
	sod, err := c.Reg.Require(schema.SalesOrderDetail, "ProductID", "OrderQty", "LineTotal")
	if err != nil {
		return nil, err
	}
	perProduct, err := pipeline.GroupBy{
		Columns: []string{"ProductID"},
		Measures: []pipeline.Measure{
			{Column: "OrderQty", Reduce: pipeline.Sum, As: "TotalVolume"},
			{Column: "LineTotal", Reduce: pipeline.Sum, As: "TotalValue"},
		},
	}.Apply(sod)
	if err != nil {
		return nil, err
	}
	joined, err := pipeline.Plan{Steps: []pipeline.Step{pipeline.ProductStep("ProductModelID")}}.Enrich(c.Reg, perProduct)
	if err != nil {
		return nil, err
	}
	models, err := pipeline.GroupBy{
		Columns: []string{"ProductModelID"},
		Measures: []pipeline.Measure{
			{Column: "TotalVolume", Reduce: pipeline.Sum},
			{Column: "TotalValue", Reduce: pipeline.Sum},
		},
	}.Apply(joined)
	if err != nil {
		return nil, err
	}
	return c.top(models, "TotalValue")
}

// salesByTerritory sums TotalDue per territory for orders inside the sales
// window. Orders without a territory are kept under a null key and shown as
// "Unknown", as are territories missing from SalesTerritory.
func salesByTerritory(c *Context) (*table.Table, error) {
	soh, err := c.Reg.Require(schema.SalesOrderHeader, "TerritoryID", "OrderDate", "TotalDue")
	if err != nil {
		return nil, err
	}
	from, to := c.Opts.SalesFrom, c.Opts.SalesTo
	dated := soh.Filter(func(r table.Row) bool {
		_, ok := r.Time("OrderDate")
		return ok
	})
	c.exclude(soh, dated)
	window := dated.Filter(func(r table.Row) bool {
		d, _ := r.Time("OrderDate")
		return !d.Before(from) && !d.After(to)
	})

	out, err := pipeline.GroupBy{
		Columns:      []string{"TerritoryID"},
		Measures:     []pipeline.Measure{{Column: "TotalDue", Reduce: pipeline.Sum, As: "TotalSales"}},
		KeepNullKeys: true,
	}.Apply(window)
	if err != nil {
		return nil, err
	}

	if _, ok := c.Reg.Lookup(schema.SalesTerritory); ok {
		if out, err = (pipeline.Plan{Steps: []pipeline.Step{pipeline.TerritoryStep("Region")}}).Enrich(c.Reg, out); err != nil {
			return nil, err
		}
		out = out.WithColumn("Region", func(r table.Row) any {
			if table.IsNull(r.Get("Region")) {
				return "Unknown"
			}
			return r.Get("Region")
		})
	} else {
		out = out.WithColumn("Region", func(r table.Row) any {
			if table.IsNull(r.Get("TerritoryID")) {
				return "Unknown"
			}
			return r.Text("TerritoryID")
		})
	}
	return out.SortBy("TotalSales", true)
}

// usRegionSales lists US territories with amounts rounded to cents and
// year-to-date sales in lakhs.
func usRegionSales(c *Context) (*table.Table, error) {
	st, err := c.Reg.Require(schema.SalesTerritory, "Name", "CountryRegionCode", "SalesYTD", "SalesLastYear")
	if err != nil {
		return nil, err
	}
	us := st.Filter(func(r table.Row) bool { return r.Text("CountryRegionCode") == "US" })
	us = us.WithColumn("SalesYTD", func(r table.Row) any {
		return metric.Round2(r.FloatOr("SalesYTD", 0))
	}).WithColumn("SalesLastYear", func(r table.Row) any {
		return metric.Round2(r.FloatOr("SalesLastYear", 0))
	}).WithColumn("SalesYTDLakhs", func(r table.Row) any {
		return metric.Lakhs(r.FloatOr("SalesYTD", 0))
	})
	out, err := us.SortBy("SalesYTD", true)
	return sel(out, err, "Name", "SalesYTD", "SalesLastYear", "SalesYTDLakhs")
}

func salesByCountry(c *Context) (*table.Table, error) {
	st, err := c.Reg.Require(schema.SalesTerritory, "CountryRegionCode", "SalesYTD", "SalesLastYear")
	if err != nil {
		return nil, err
	}
	out, err := pipeline.GroupBy{
		Columns: []string{"CountryRegionCode"},
		Measures: []pipeline.Measure{
			{Column: "SalesYTD", Reduce: pipeline.Sum},
			{Column: "SalesLastYear", Reduce: pipeline.Sum},
		},
	}.Apply(st)
	if err != nil {
		return nil, err
	}
	out = out.WithColumn("SalesYTDLakhs", func(r table.Row) any {
		return metric.Lakhs(r.FloatOr("SalesYTD", 0))
	}).WithColumn("SalesLastYearLakhs", func(r table.Row) any {
		return metric.Lakhs(r.FloatOr("SalesLastYear", 0))
	})
	return out.SortBy("SalesYTDLakhs", true)
}

// demandVsSupply puts ordered quantity next to stocked quantity for every
// product. Either side defaults to 0.
func demandVsSupply(c *Context) (*table.Table, error) {
	frame, err := c.productFrame(true,
		measure{schema.SalesOrderDetail, "OrderQty", "Demand"},
		measure{schema.ProductInventory, "Quantity", "Supply"},
	)
	return sel(frame, err, "Name", "Demand", "Supply")
}

// fillRateByCategory averages the per-product fill rate within each category.
// ShippedOnTime is the stocked quantity of work orders finished by their due
// date and defaults to 0. Work orders with an unparseable end or due date are
// excluded, as are products with nothing ordered.
func fillRateByCategory(c *Context) (*table.Table, error) {
	ordered, err := c.totals(schema.SalesOrderDetail, "OrderQty", "TotalOrdered")
	if err != nil {
		return nil, err
	}
	wo, err := c.Reg.Require(schema.WorkOrder, "ProductID", "StockedQty", "EndDate", "DueDate")
	if err != nil {
		return nil, err
	}
	flagged := wo.Map("OnTime", func(r table.Row) (any, bool) {
		end, due, ok := dates(r, "EndDate", "DueDate")
		if !ok {
			return nil, false
		}
		on, ok := metric.OnTime(end, due)
		return on, ok
	})
	c.exclude(wo, flagged)
	onTime := flagged.Filter(func(r table.Row) bool { return r.Get("OnTime") == true })
	shipped, err := sumBy(onTime, []string{"ProductID"}, "StockedQty", "ShippedOnTime")
	if err != nil {
		return nil, err
	}

	merged, err := pipeline.Merge(ordered, shipped.Named("Shipped"), pipeline.LeftJoin, "ProductID")
	if err != nil {
		return nil, err
	}
	if merged, err = merged.Fill(0.0, "ShippedOnTime"); err != nil {
		return nil, err
	}
	rated := merged.Map("FillRate", func(r table.Row) (any, bool) {
		return metric.FillRate(r.FloatOr("ShippedOnTime", 0), r.FloatOr("TotalOrdered", 0))
	})
	c.exclude(merged, rated)

	joined, err := pipeline.Plan{Steps: pipeline.CategoryChain(pipeline.ChainOptions{Category: "CategoryName"})}.Enrich(c.Reg, rated)
	if err != nil {
		return nil, err
	}
	out, err := pipeline.GroupBy{
		Columns:  []string{"CategoryName"},
		Measures: []pipeline.Measure{{Column: "FillRate", Reduce: pipeline.Mean}},
	}.Apply(joined)
	if err != nil {
		return nil, err
	}
	return out.SortBy("FillRate", true)
}
