// Package stats holds the statistical summaries layered on top of aggregated
// tables: Pearson correlation matrices and additive seasonal decomposition.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"insights/internal/table"
)

// CorrelationMatrix returns the Pearson correlation between every pair of
// cols, computed over the rows where all of them are numeric. The result has
// a "Metric" column naming the row variable followed by one column per
// variable. Undefined coefficients (fewer than two rows, or a constant
// column) are null.
func CorrelationMatrix(t *table.Table, cols ...string) (*table.Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	series := make([][]float64, len(cols))
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		vals := make([]float64, len(cols))
		complete := true
		for k, c := range cols {
			f, ok := r.Float(c)
			if !ok {
				complete = false
				break
			}
			vals[k] = f
		}
		if !complete {
			continue
		}
		for k := range cols {
			series[k] = append(series[k], vals[k])
		}
	}

	out := make([][]any, len(cols))
	for a := range cols {
		row := make([]any, 0, len(cols)+1)
		row = append(row, cols[a])
		for b := range cols {
			row = append(row, pearson(series[a], series[b]))
		}
		out[a] = row
	}
	return table.New("correlation", append([]string{"Metric"}, cols...), out)
}

func pearson(x, y []float64) any {
	if len(x) < 2 {
		return nil
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return r
}
