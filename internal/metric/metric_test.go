package metric

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

/* TestLeadTimeDays verifies whole-day differences and the negative discard. */
func TestLeadTimeDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
		ok         bool
	}{
		{"three days", day("2024-01-01"), day("2024-01-04"), 3, true},
		{"same day", day("2024-01-01"), day("2024-01-01"), 0, true},
		{"partial day floors", day("2024-01-01"), day("2024-01-02").Add(20 * time.Hour), 1, true},
		{"negative discarded", day("2024-01-04"), day("2024-01-01"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LeadTimeDays(tt.start, tt.end)
			if got != tt.want || ok != tt.ok {
				t.Errorf("LeadTimeDays = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

/* TestFillRate verifies the worked examples and the zero-order exclusion. */
func TestFillRate(t *testing.T) {
	if got, ok := FillRate(80, 100); !ok || got != 80.0 {
		t.Errorf("FillRate(80,100) = %v, %v", got, ok)
	}
	if got, ok := FillRate(0, 100); !ok || got != 0.0 {
		t.Errorf("FillRate(0,100) = %v, %v", got, ok)
	}
	if _, ok := FillRate(5, 0); ok {
		t.Error("FillRate with zero ordered should be undefined")
	}
}

/* TestOnTime verifies the due-date boundary and unparseable dates. */
func TestOnTime(t *testing.T) {
	if on, ok := OnTime(day("2024-01-05"), day("2024-01-05")); !on || !ok {
		t.Error("end on due date should be on time")
	}
	if on, ok := OnTime(day("2024-01-06"), day("2024-01-05")); on || !ok {
		t.Error("late order reported on time")
	}
	if _, ok := OnTime(time.Time{}, day("2024-01-05")); ok {
		t.Error("missing end date not excluded")
	}
}

/* TestShortfallAndStockout verifies the zero floor and its stockout cost. */
func TestShortfallAndStockout(t *testing.T) {
	s := Shortfall(50, 70)
	if s != 0 {
		t.Fatalf("Shortfall(50,70) = %v", s)
	}
	if c := CostOfStockout(s, 1000); c != 0 {
		t.Fatalf("CostOfStockout = %v", c)
	}
	if s := Shortfall(70, 50); s != 20 {
		t.Fatalf("Shortfall(70,50) = %v", s)
	}
	if c := CostOfStockout(3, 20.24); c != 60.72 {
		t.Fatalf("CostOfStockout(3, 20.24) = %v", c)
	}
}

/* TestShortageOverstockSymmetry verifies Overstock = -Shortage. */
func TestShortageOverstockSymmetry(t *testing.T) {
	for _, c := range [][2]float64{{10, 3}, {3, 10}, {0, 0}} {
		if Overstock(c[0], c[1]) != -StockShortage(c[0], c[1]) {
			t.Errorf("asymmetric for %v", c)
		}
	}
}

/* TestPerPickAndDelay verifies zero-stock exclusion and signed delays. */
func TestPerPickAndDelay(t *testing.T) {
	if _, ok := PerPick(4, 0); ok {
		t.Error("PerPick with zero stocked should be excluded")
	}
	if v, ok := PerPick(4, 8); !ok || v != 0.5 {
		t.Errorf("PerPick(4,8) = %v, %v", v, ok)
	}
	if d := ProductionDelayDays(day("2024-01-01"), day("2024-01-03")); d != -2 {
		t.Errorf("ProductionDelayDays early = %d", d)
	}
}

/* TestMoneyRounding verifies decimal rounding helpers. */
func TestMoneyRounding(t *testing.T) {
	if got := Lakhs(7887186.7882); got != 78.87 {
		t.Errorf("Lakhs = %v", got)
	}
	if got := Round2(2.675); got != 2.68 {
		t.Errorf("Round2 = %v", got)
	}
	if got := InventoryValue(3, 0.1); got != 0.3 {
		t.Errorf("InventoryValue = %v", got)
	}
}
