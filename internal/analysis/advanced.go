package analysis

import (
	"insights/internal/metric"
	"insights/internal/pipeline"
	"insights/internal/schema"
	"insights/internal/stats"
	"insights/internal/table"
)

func advancedDefs() []Definition {
	subcatTables := []string{schema.SalesOrderDetail, schema.WorkOrder, schema.Product, schema.ProductSubcategory, schema.ProductCategory}
	delayTables := []string{schema.Product, schema.ProductInventory, schema.SalesOrderDetail, schema.WorkOrderRouting}
	return []Definition{
		{
			Name:   "top-subcategories-by-sales",
			Title:  "Top subcategories by sales",
			Page:   PageAdvanced,
			Tables: subcatTables,
			TopN:   10,
			Run:    func(c *Context) (*table.Table, error) { return subcategoryRanking(c, "SalesQty") },
		},
		{
			Name:   "top-subcategories-by-production",
			Title:  "Top subcategories by production",
			Page:   PageAdvanced,
			Tables: subcatTables,
			TopN:   10,
			Run:    func(c *Context) (*table.Table, error) { return subcategoryRanking(c, "ProductionQty") },
		},
		{
			Name:   "inventory-vs-delay",
			Title:  "Inventory vs routing delay by product",
			Page:   PageAdvanced,
			Tables: delayTables,
			Run:    inventoryVsDelay,
		},
		{
			Name:   "inventory-sales-delay-correlation",
			Title:  "Correlation of inventory, sales and routing delay",
			Page:   PageAdvanced,
			Tables: delayTables,
			Run:    inventorySalesDelayCorrelation,
		},
		{
			Name:   "cost-of-stockouts",
			Title:  "Cost of stockouts by product",
			Page:   PageAdvanced,
			Tables: []string{schema.SalesOrderDetail, schema.ProductInventory, schema.Product},
			TopN:   10,
			Run:    costOfStockouts,
		},
	}
}

// subcategoryQty sums a fact's OrderQty per (Category, SubCategory).
func subcategoryQty(c *Context, fact, as string) (*table.Table, error) {
	joined, err := pipeline.Plan{
		Fact: fact,
		Steps: pipeline.CategoryChain(pipeline.ChainOptions{
			Subcategory: "SubCategory",
			Category:    "Category",
		}),
	}.Run(c.Reg)
	if err != nil {
		return nil, err
	}
	out, err := sumBy(joined, []string{"Category", "SubCategory"}, "OrderQty", as)
	if err != nil {
		return nil, err
	}
	return out.Named(as), nil
}

// subcategoryRanking puts sold and produced quantity side by side per
// subcategory and ranks by one of them. A subcategory missing on one side
// gets 0.
func subcategoryRanking(c *Context, by string) (*table.Table, error) {
	sales, err := subcategoryQty(c, schema.SalesOrderDetail, "SalesQty")
	if err != nil {
		return nil, err
	}
	prod, err := subcategoryQty(c, schema.WorkOrder, "ProductionQty")
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(sales, prod, pipeline.OuterJoin, "Category", "SubCategory")
	if err != nil {
		return nil, err
	}
	if merged, err = merged.Fill(0.0, "SalesQty", "ProductionQty"); err != nil {
		return nil, err
	}
	return c.top(merged, by)
}

// routingDelayFrame is Product(Name) with inventory, sales and mean routing
// delay attached. Only products with all three are kept. Routing rows with
// an unparseable scheduled or actual end date are excluded.
func routingDelayFrame(c *Context) (*table.Table, error) {
	frame, err := c.productFrame(false,
		measure{schema.ProductInventory, "Quantity", "InventoryQty"},
		measure{schema.SalesOrderDetail, "OrderQty", "TotalSalesQty"},
	)
	if err != nil {
		return nil, err
	}
	wor, err := c.Reg.Require(schema.WorkOrderRouting, "ProductID", "ScheduledEndDate", "ActualEndDate")
	if err != nil {
		return nil, err
	}
	delayed := wor.Map("DelayDays", func(r table.Row) (any, bool) {
		sched, actual, ok := dates(r, "ScheduledEndDate", "ActualEndDate")
		if !ok {
			return nil, false
		}
		return int64(metric.ProductionDelayDays(actual, sched)), true
	})
	c.exclude(wor, delayed)
	delay, err := pipeline.GroupBy{
		Columns:  []string{"ProductID"},
		Measures: []pipeline.Measure{{Column: "DelayDays", Reduce: pipeline.Mean, As: "AvgDelayDays"}},
	}.Apply(delayed)
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(frame, delay.Named("Routing"), pipeline.LeftJoin, "ProductID")
	if err != nil {
		return nil, err
	}
	return merged.DropNull("InventoryQty", "TotalSalesQty", "AvgDelayDays")
}

func inventoryVsDelay(c *Context) (*table.Table, error) {
	frame, err := routingDelayFrame(c)
	return sel(frame, err, "Name", "InventoryQty", "TotalSalesQty", "AvgDelayDays")
}

func inventorySalesDelayCorrelation(c *Context) (*table.Table, error) {
	frame, err := routingDelayFrame(c)
	if err != nil {
		return nil, err
	}
	return stats.CorrelationMatrix(frame, "InventoryQty", "TotalSalesQty", "AvgDelayDays")
}

// costOfStockouts prices the unmet demand of each ordered product at list
// price. A product with no inventory record has nothing available. Products
// without a list price are excluded.
func costOfStockouts(c *Context) (*table.Table, error) {
	ordered, err := c.totals(schema.SalesOrderDetail, "OrderQty", "TotalOrdered")
	if err != nil {
		return nil, err
	}
	avail, err := c.totals(schema.ProductInventory, "Quantity", "InventoryAvailable")
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(ordered, avail, pipeline.LeftJoin, "ProductID")
	if err != nil {
		return nil, err
	}
	if merged, err = merged.Fill(0.0, "InventoryAvailable"); err != nil {
		return nil, err
	}
	merged = merged.WithColumn("Shortfall", func(r table.Row) any {
		return metric.Shortfall(r.FloatOr("TotalOrdered", 0), r.FloatOr("InventoryAvailable", 0))
	})
	joined, err := pipeline.Plan{Steps: []pipeline.Step{pipeline.ProductStep("Name", "ListPrice")}}.Enrich(c.Reg, merged)
	if err != nil {
		return nil, err
	}
	// Unpriced products stay with a null cost and sort last.
	priced := joined.WithColumn("CostOfStockout", func(r table.Row) any {
		price, ok := r.Float("ListPrice")
		if !ok {
			return nil
		}
		return metric.CostOfStockout(r.FloatOr("Shortfall", 0), price)
	})
	out, err := c.top(priced, "CostOfStockout")
	return sel(out, err, "Name", "TotalOrdered", "InventoryAvailable", "Shortfall", "CostOfStockout")
}
