// Package metric holds the derived measures computed from joined or
// aggregated columns. Every function is pure.
//
// Each measure has a fixed policy for its edge case, and those policies decide
// which rows reach a top-N result:
//
//	FillRate         excluded when nothing was ordered
//	OnTime           excluded when either date is unparseable
//	Shortfall        floored at zero
//	LeadTimeDays     excluded when negative
//	PerPick          excluded when nothing was stocked
//	ProductionDelay  kept when negative (early)
package metric

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryValue is quantity times standard cost, multiplied in decimal so
// currency amounts do not pick up binary rounding noise.
func InventoryValue(qty, cost float64) float64 {
	v, _ := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(cost)).Float64()
	return v
}

// FillRate is 100 * shipped / ordered. ok is false when ordered is zero.
func FillRate(shipped, ordered float64) (float64, bool) {
	if ordered == 0 {
		return 0, false
	}
	return 100 * shipped / ordered, true
}

// OnTime reports whether a work order ended by its due date. ok is false when
// either date is missing or unparseable.
func OnTime(end, due time.Time) (onTime, ok bool) {
	if end.IsZero() || due.IsZero() {
		return false, false
	}
	return !end.After(due), true
}

// Shortfall is the unmet demand, never negative.
func Shortfall(ordered, available float64) float64 {
	return math.Max(ordered-available, 0)
}

// CostOfStockout prices a shortfall at list price.
func CostOfStockout(shortfall, listPrice float64) float64 {
	v, _ := decimal.NewFromFloat(shortfall).Mul(decimal.NewFromFloat(listPrice)).Float64()
	return v
}

// WholeDays converts d to days, rounding toward negative infinity.
func WholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// LeadTimeDays is end minus start in whole days. ok is false for negative
// lead times, which are data errors.
func LeadTimeDays(start, end time.Time) (int, bool) {
	days := WholeDays(end.Sub(start))
	if days < 0 {
		return 0, false
	}
	return days, true
}

// PerPick divides hours or cost by stocked quantity. ok is false when nothing
// was stocked.
func PerPick(amount, stocked float64) (float64, bool) {
	if stocked == 0 {
		return 0, false
	}
	return amount / stocked, true
}

// ProductionDelayDays is end minus due in whole days; negative means early.
func ProductionDelayDays(end, due time.Time) int {
	return WholeDays(end.Sub(due))
}

// StockShortage is sales minus inventory; negative means surplus.
func StockShortage(sales, inventory float64) float64 {
	return sales - inventory
}

// Overstock is the negated stock shortage.
func Overstock(sales, inventory float64) float64 {
	return -StockShortage(sales, inventory)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Lakhs expresses v in units of 100,000, rounded to two places.
func Lakhs(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Div(decimal.NewFromInt(100000)).Round(2).Float64()
	return f
}
