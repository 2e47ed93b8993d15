package analysis

import (
	"fmt"
	"math"
	"time"

	"insights/internal/metric"
	"insights/internal/pipeline"
	"insights/internal/schema"
	"insights/internal/stats"
	"insights/internal/table"
)

func productionDefs() []Definition {
	return []Definition{
		{
			Name:   "production-trend",
			Title:  "Top products by production over time",
			Page:   PageProduction,
			Tables: []string{schema.WorkOrder, schema.Product},
			TopN:   5,
			Run:    productionTrend,
		},
		{
			Name:   "scrap-by-reason",
			Title:  "Scrapped quantity by reason",
			Page:   PageProduction,
			Tables: []string{schema.WorkOrder, schema.ScrapReason},
			Run:    scrapByReason,
		},
		{
			Name:   "lead-time-by-category",
			Title:  "Lead time distribution by product category",
			Page:   PageProduction,
			Tables: []string{schema.WorkOrder, schema.Product, schema.ProductSubcategory, schema.ProductCategory},
			Run:    leadTimeByCategory,
		},
		{
			Name:   "picking-efficiency",
			Title:  "Picking efficiency by product and location",
			Page:   PageProduction,
			Tables: []string{schema.WorkOrderRouting, schema.WorkOrder, schema.Product, schema.Location},
			TopN:   10,
			Run:    pickingEfficiency,
		},
		{
			Name:   "inventory-production-delay-correlation",
			Title:  "Correlation of inventory, sales, production, shortage and delay",
			Page:   PageProduction,
			Tables: []string{schema.Product, schema.ProductInventory, schema.SalesOrderDetail, schema.WorkOrder},
			Run:    inventoryProductionDelayCorrelation,
		},
		{
			Name:   "seasonality",
			Title:  "Monthly inventory vs production",
			Page:   PageProduction,
			Tables: []string{schema.ProductInventory, schema.WorkOrder},
			Run:    seasonality,
		},
		{
			Name:   "inventory-seasonal-decomposition",
			Title:  "Seasonal decomposition of monthly inventory",
			Page:   PageProduction,
			Tables: []string{schema.ProductInventory},
			Run:    inventoryDecomposition,
		},
	}
}

// productionTrend is monthly produced quantity for the products with the
// largest total production.
func productionTrend(c *Context) (*table.Table, error) {
	wo, err := c.Reg.Require(schema.WorkOrder, "ProductID", "OrderQty", "StartDate")
	if err != nil {
		return nil, err
	}
	name := pipeline.ProductStep("Name")
	name.As = map[string]string{"Name": "ProductName"}
	joined, err := pipeline.Plan{Steps: []pipeline.Step{name}}.Enrich(c.Reg, wo)
	if err != nil {
		return nil, err
	}
	if joined, err = c.month(joined, "StartDate"); err != nil {
		return nil, err
	}
	monthly, err := sumBy(joined, []string{"Month", "ProductName"}, "OrderQty", "TotalProduced")
	if err != nil {
		return nil, err
	}

	ranked, err := sumBy(monthly, []string{"ProductName"}, "TotalProduced", "TotalProduced")
	if err != nil {
		return nil, err
	}
	if ranked, err = c.top(ranked, "TotalProduced"); err != nil {
		return nil, err
	}
	keep := make(map[string]bool, ranked.Len())
	for i := 0; i < ranked.Len(); i++ {
		keep[ranked.Row(i).Text("ProductName")] = true
	}
	return monthly.Filter(func(r table.Row) bool { return keep[r.Text("ProductName")] }), nil
}

func scrapByReason(c *Context) (*table.Table, error) {
	wo, err := c.Reg.Require(schema.WorkOrder, "ScrappedQty", "ScrapReasonID")
	if err != nil {
		return nil, err
	}
	scrapped := wo.Filter(func(r table.Row) bool { return r.FloatOr("ScrappedQty", 0) > 0 })
	joined, err := pipeline.Plan{Steps: []pipeline.Step{pipeline.ScrapReasonStep("ScrapReason")}}.Enrich(c.Reg, scrapped)
	if err != nil {
		return nil, err
	}
	out, err := sumBy(joined, []string{"ScrapReason"}, "ScrappedQty", "ScrappedQty")
	if err != nil {
		return nil, err
	}
	return out.SortBy("ScrappedQty", true)
}

// leadTimeByCategory summarizes the lead time distribution per category.
// Rows with unparseable dates or a negative lead time are excluded.
func leadTimeByCategory(c *Context) (*table.Table, error) {
	wo, err := c.Reg.Require(schema.WorkOrder, "ProductID", "StartDate", "EndDate")
	if err != nil {
		return nil, err
	}
	timed := wo.Map("LeadTimeDays", func(r table.Row) (any, bool) {
		start, end, ok := dates(r, "StartDate", "EndDate")
		if !ok {
			return nil, false
		}
		days, ok := metric.LeadTimeDays(start, end)
		return int64(days), ok
	})
	c.exclude(wo, timed)

	joined, err := pipeline.Plan{Steps: pipeline.CategoryChain(pipeline.ChainOptions{Category: "CategoryName"})}.Enrich(c.Reg, timed)
	if err != nil {
		return nil, err
	}
	return pipeline.GroupBy{
		Columns: []string{"CategoryName"},
		Measures: []pipeline.Measure{
			{Column: "LeadTimeDays", Reduce: pipeline.Count, As: "Orders"},
			{Column: "LeadTimeDays", Reduce: pipeline.Mean, As: "MeanDays"},
			{Column: "LeadTimeDays", Reduce: pipeline.Min, As: "MinDays"},
			{Column: "LeadTimeDays", Reduce: pipeline.Median, As: "MedianDays"},
			{Column: "LeadTimeDays", Reduce: pipeline.Max, As: "MaxDays"},
		},
	}.Apply(joined)
}

// pickingEfficiency divides routing hours and cost by the stocked quantity of
// the work order. Work orders with nothing stocked are excluded.
func pickingEfficiency(c *Context) (*table.Table, error) {
	wor, err := c.Reg.Require(schema.WorkOrderRouting, "WorkOrderID", "ProductID", "LocationID", "ActualResourceHrs", "ActualCost")
	if err != nil {
		return nil, err
	}
	wo, err := c.Reg.Require(schema.WorkOrder, "WorkOrderID", "ProductID", "StockedQty")
	if err != nil {
		return nil, err
	}
	routing, err := pipeline.GroupBy{
		Columns: []string{"WorkOrderID", "ProductID", "LocationID"},
		Measures: []pipeline.Measure{
			{Column: "ActualResourceHrs", Reduce: pipeline.Sum},
			{Column: "ActualCost", Reduce: pipeline.Sum},
		},
	}.Apply(wor)
	if err != nil {
		return nil, err
	}
	stocked, err := sumBy(wo, []string{"WorkOrderID", "ProductID"}, "StockedQty", "StockedQty")
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(routing, stocked.Named(schema.WorkOrder), pipeline.LeftJoin, "WorkOrderID", "ProductID")
	if err != nil {
		return nil, err
	}

	picks := merged.Map("TimePerPick", func(r table.Row) (any, bool) {
		q, ok := r.Float("StockedQty")
		if !ok {
			return nil, false
		}
		return metric.PerPick(r.FloatOr("ActualResourceHrs", 0), q)
	})
	c.exclude(merged, picks)
	picks = picks.WithColumn("CostPerPick", func(r table.Row) any {
		v, _ := metric.PerPick(r.FloatOr("ActualCost", 0), r.FloatOr("StockedQty", 0))
		return v
	})

	eff, err := pipeline.GroupBy{
		Columns: []string{"ProductID", "LocationID"},
		Measures: []pipeline.Measure{
			{Column: "TimePerPick", Reduce: pipeline.Mean},
			{Column: "CostPerPick", Reduce: pipeline.Mean},
		},
	}.Apply(picks)
	if err != nil {
		return nil, err
	}
	name := pipeline.ProductStep("Name")
	name.As = map[string]string{"Name": "ProductName"}
	if eff, err = (pipeline.Plan{Steps: []pipeline.Step{name, pipeline.LocationStep("LocationName")}}).Enrich(c.Reg, eff); err != nil {
		return nil, err
	}
	if eff, err = eff.DropNull("TimePerPick", "CostPerPick", "ProductName", "LocationName"); err != nil {
		return nil, err
	}
	out, err := c.top(eff, "TimePerPick")
	return sel(out, err, "ProductName", "LocationName", "TimePerPick", "CostPerPick")
}

// delayFrame is the per-product production frame with the mean production
// delay attached. Products without dated work orders are dropped.
func delayFrame(c *Context) (*table.Table, error) {
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
	})

	wo, err := c.Reg.Require(schema.WorkOrder, "ProductID", "EndDate", "DueDate")
	if err != nil {
		return nil, err
	}
	delayed := wo.Map("ProductionDelayDays", func(r table.Row) (any, bool) {
		end, due, ok := dates(r, "EndDate", "DueDate")
		if !ok {
			return nil, false
		}
		return int64(metric.ProductionDelayDays(end, due)), true
	})
	c.exclude(wo, delayed)
	delay, err := pipeline.GroupBy{
		Columns:  []string{"ProductID"},
		Measures: []pipeline.Measure{{Column: "ProductionDelayDays", Reduce: pipeline.Mean}},
	}.Apply(delayed)
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(frame, delay.Named("Delay"), pipeline.LeftJoin, "ProductID")
	if err != nil {
		return nil, err
	}
	return merged.DropNull("ProductionDelayDays")
}

func inventoryProductionDelayCorrelation(c *Context) (*table.Table, error) {
	frame, err := delayFrame(c)
	if err != nil {
		return nil, err
	}
	return stats.CorrelationMatrix(frame, "InventoryQty", "SalesQty", "ProducedQty", "StockShortage", "ProductionDelayDays")
}

// monthlyInventory sums stocked quantity per ModifiedDate month.
func monthlyInventory(c *Context) (*table.Table, error) {
	pi, err := c.Reg.Require(schema.ProductInventory, "Quantity", "ModifiedDate")
	if err != nil {
		return nil, err
	}
	pi, err = c.month(pi, "ModifiedDate")
	if err != nil {
		return nil, err
	}
	out, err := sumBy(pi, []string{"Month"}, "Quantity", "Quantity")
	if err != nil {
		return nil, err
	}
	return out.Named("Inventory"), nil
}

// seasonality lines up monthly inventory and production. A month present on
// one side only gets 0 on the other.
func seasonality(c *Context) (*table.Table, error) {
	inv, err := monthlyInventory(c)
	if err != nil {
		return nil, err
	}
	wo, err := c.Reg.Require(schema.WorkOrder, "OrderQty", "StartDate")
	if err != nil {
		return nil, err
	}
	if wo, err = c.month(wo, "StartDate"); err != nil {
		return nil, err
	}
	prod, err := sumBy(wo, []string{"Month"}, "OrderQty", "OrderQty")
	if err != nil {
		return nil, err
	}
	merged, err := pipeline.Merge(inv, prod.Named("Production"), pipeline.OuterJoin, "Month")
	if err != nil {
		return nil, err
	}
	if merged, err = merged.Fill(0.0, "Quantity", "OrderQty"); err != nil {
		return nil, err
	}
	return merged.SortBy("Month", false)
}

// inventoryDecomposition splits the monthly inventory series into trend,
// seasonal and residual parts. Months between the first and last observation
// with no inventory record count as 0.
func inventoryDecomposition(c *Context) (*table.Table, error) {
	inv, err := monthlyInventory(c)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]float64, inv.Len())
	var first, last time.Time
	for i := 0; i < inv.Len(); i++ {
		r := inv.Row(i)
		m, err := time.Parse(monthLayout, r.Text("Month"))
		if err != nil {
			return nil, fmt.Errorf("month %q: %w", r.Text("Month"), err)
		}
		byMonth[r.Text("Month")] = r.FloatOr("Quantity", 0)
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}
	var (
		months []string
		series []float64
	)
	for m := first; !first.IsZero() && !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthLayout)
		months = append(months, key)
		series = append(series, byMonth[key])
	}

	d, err := stats.Decompose(series, c.Opts.Period)
	if err != nil {
		return nil, &table.InvalidMeasureError{Table: schema.ProductInventory, Column: "Quantity", Reason: err.Error()}
	}
	rows := make([][]any, len(series))
	for i := range series {
		rows[i] = []any{months[i], d.Observed[i], orNull(d.Trend[i]), d.Seasonal[i], orNull(d.Residual[i])}
	}
	return table.New("decomposition", []string{"Month", "Observed", "Trend", "Seasonal", "Residual"}, rows)
}

func orNull(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
