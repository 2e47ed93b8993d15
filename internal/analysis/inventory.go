package analysis

import (
	"insights/internal/metric"
	"insights/internal/pipeline"
	"insights/internal/schema"
	"insights/internal/table"
)

func inventoryDefs() []Definition {
	catalogTables := []string{schema.ProductInventory, schema.Product, schema.ProductSubcategory, schema.ProductCategory}
	return []Definition{
		{
			Name:   "inventory-by-category",
			Title:  "Inventory quantity by product category",
			Page:   PageInventory,
			Tables: catalogTables,
			Run:    inventoryByCategory,
		},
		{
			Name:   "inventory-vs-safety-stock",
			Title:  "Inventory vs safety stock level",
			Page:   PageInventory,
			Tables: []string{schema.ProductInventory, schema.Product},
			TopN:   20,
			Run:    inventoryVsSafetyStock,
		},
		{
			Name:   "top-products-by-inventory",
			Title:  "Top products by inventory quantity",
			Page:   PageInventory,
			Tables: []string{schema.ProductInventory, schema.Product},
			TopN:   10,
			Run:    topProductsByInventory,
		},
		{
			Name:   "inventory-by-subcategory",
			Title:  "Inventory quantity by product subcategory",
			Page:   PageInventory,
			Tables: []string{schema.ProductInventory, schema.Product, schema.ProductSubcategory},
			Run:    inventoryBySubcategory,
		},
		{
			Name:   "space-utilization",
			Title:  "Space utilization by location and category",
			Page:   PageInventory,
			Tables: append(catalogTables, schema.Location),
			Run:    spaceUtilization,
		},
		{
			Name:   "stock-shortages",
			Title:  "Products with inventory shortages",
			Page:   PageInventory,
			Tables: []string{schema.Product, schema.ProductInventory, schema.SalesOrderDetail, schema.WorkOrder},
			TopN:   20,
			Run:    func(c *Context) (*table.Table, error) { return mismatch(c, "StockShortage") },
		},
		{
			Name:   "overstock",
			Title:  "Products with overstock",
			Page:   PageInventory,
			Tables: []string{schema.Product, schema.ProductInventory, schema.SalesOrderDetail, schema.WorkOrder},
			TopN:   20,
			Run:    func(c *Context) (*table.Table, error) { return mismatch(c, "Overstock") },
		},
		{
			Name:   "inventory-value-by-category",
			Title:  "Inventory value by product category",
			Page:   PageInventory,
			Tables: catalogTables,
			Run:    inventoryValueByCategory,
		},
	}
}

func inventoryByCategory(c *Context) (*table.Table, error) {
	joined, err := pipeline.Plan{
		Fact:  schema.ProductInventory,
		Steps: pipeline.CategoryChain(pipeline.ChainOptions{Category: "CategoryName"}),
	}.Run(c.Reg)
	if err != nil {
		return nil, err
	}
	out, err := sumBy(joined, []string{"CategoryName"}, "Quantity", "Quantity")
	if err != nil {
		return nil, err
	}
	return out.SortBy("Quantity", true)
}

func inventoryBySubcategory(c *Context) (*table.Table, error) {
	joined, err := pipeline.Plan{
		Fact:  schema.ProductInventory,
		Steps: pipeline.CategoryChain(pipeline.ChainOptions{Subcategory: "SubcategoryName"}),
	}.Run(c.Reg)
	if err != nil {
		return nil, err
	}
	out, err := sumBy(joined, []string{"SubcategoryName"}, "Quantity", "Quantity")
	if err != nil {
		return nil, err
	}
	return out.SortBy("Quantity", true)
}

func inventoryVsSafetyStock(c *Context) (*table.Table, error) {
	inv, err := c.totals(schema.ProductInventory, "Quantity", "InventoryQty")
	if err != nil {
		return nil, err
	}
	joined, err := pipeline.Plan{Steps: []pipeline.Step{pipeline.ProductStep("Name", "SafetyStockLevel")}}.Enrich(c.Reg, inv)
	if err != nil {
		return nil, err
	}
	kept := joined.Filter(func(r table.Row) bool {
		v, ok := r.Float("SafetyStockLevel")
		return ok && v > 0
	})
	out, err := c.top(kept, "SafetyStockLevel")
	return sel(out, err, "Name", "InventoryQty", "SafetyStockLevel")
}

func topProductsByInventory(c *Context) (*table.Table, error) {
	inv, err := c.totals(schema.ProductInventory, "Quantity", "InventoryQty")
	if err != nil {
		return nil, err
	}
	joined, err := pipeline.Plan{Steps: []pipeline.Step{pipeline.ProductStep("Name")}}.Enrich(c.Reg, inv)
	if err != nil {
		return nil, err
	}
	out, err := c.top(joined, "InventoryQty")
	return sel(out, err, "Name", "InventoryQty")
}

// spaceUtilization is the location x category matrix of stocked quantity.
// Pairs with no inventory are 0.
func spaceUtilization(c *Context) (*table.Table, error) {
	steps := append(pipeline.CategoryChain(pipeline.ChainOptions{Category: "CategoryName"}),
		pipeline.LocationStep("LocationName"))
	joined, err := pipeline.Plan{Fact: schema.ProductInventory, Steps: steps}.Run(c.Reg)
	if err != nil {
		return nil, err
	}
	grouped, err := sumBy(joined, []string{"LocationName", "CategoryName"}, "Quantity", "Quantity")
	if err != nil {
		return nil, err
	}
	return pipeline.Pivot(grouped, "LocationName", "CategoryName", "Quantity", 0.0)
}

// mismatch ranks products by StockShortage or Overstock. Only products where
// sales and inventory differ are kept.
func mismatch(c *Context, by string) (*table.Table, error) {
	frame, err := c.productFrame(true,
		measure{schema.ProductInventory, "Quantity", "InventoryQty"},
		measure{schema.SalesOrderDetail, "OrderQty", "SalesQty"},
		measure{schema.WorkOrder, "OrderQty", "ProducedQty"},
	)
	if err != nil {
		return nil, err
	}
	frame = frame.WithColumn("StockShortage", func(r table.Row) any {
		return metric.StockShortage(r.FloatOr("SalesQty", 0), r.FloatOr("InventoryQty", 0))
	}).WithColumn("Overstock", func(r table.Row) any {
		return metric.Overstock(r.FloatOr("SalesQty", 0), r.FloatOr("InventoryQty", 0))
	})
	frame = frame.Filter(func(r table.Row) bool { return r.FloatOr("StockShortage", 0) != 0 })
	out, err := c.top(frame, by)
	return sel(out, err, "Name", "InventoryQty", "SalesQty", "ProducedQty", by)
}

// inventoryValueByCategory prices each product's stock at standard cost.
// Products without a cost are excluded.
func inventoryValueByCategory(c *Context) (*table.Table, error) {
	inv, err := c.totals(schema.ProductInventory, "Quantity", "InventoryQty")
	if err != nil {
		return nil, err
	}
	joined, err := pipeline.Plan{Steps: pipeline.CategoryChain(pipeline.ChainOptions{
		ProductColumns: []string{"StandardCost"},
		Category:       "CategoryName",
	})}.Enrich(c.Reg, inv)
	if err != nil {
		return nil, err
	}
	valued := joined.Map("InventoryValue", func(r table.Row) (any, bool) {
		cost, ok := r.Float("StandardCost")
		if !ok {
			return nil, false
		}
		return metric.InventoryValue(r.FloatOr("InventoryQty", 0), cost), true
	})
	c.exclude(joined, valued)
	out, err := sumBy(valued, []string{"CategoryName"}, "InventoryValue", "InventoryValue")
	if err != nil {
		return nil, err
	}
	return out.SortBy("InventoryValue", true)
}
