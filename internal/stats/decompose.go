package stats

import (
	"fmt"
	"math"
)

// Decomposition splits a series into trend, seasonal, and residual parts
// such that Observed = Trend + Seasonal + Residual wherever Trend is defined.
// Undefined points (the half-window at each end) are NaN.
type Decomposition struct {
	Observed []float64
	Trend    []float64
	Seasonal []float64
	Residual []float64
}

// Decompose performs an additive decomposition with the given period. The
// trend is a centered moving average (a 2xN average for even periods), the
// seasonal profile is the per-phase mean of the detrended series centered on
// zero, and the residual is what remains. At least two full periods are
// required.
func Decompose(series []float64, period int) (Decomposition, error) {
	n := len(series)
	if period < 2 {
		return Decomposition{}, fmt.Errorf("decompose: period must be >= 2, got %d", period)
	}
	if n < 2*period {
		return Decomposition{}, fmt.Errorf("decompose: need at least %d observations, got %d", 2*period, n)
	}

	trend := movingAverage(series, period)

	phaseSum := make([]float64, period)
	phaseN := make([]int, period)
	for i, v := range series {
		if math.IsNaN(trend[i]) {
			continue
		}
		phaseSum[i%period] += v - trend[i]
		phaseN[i%period]++
	}
	profile := make([]float64, period)
	var mean float64
	for p := range profile {
		if phaseN[p] > 0 {
			profile[p] = phaseSum[p] / float64(phaseN[p])
		}
		mean += profile[p]
	}
	mean /= float64(period)

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for i := range series {
		seasonal[i] = profile[i%period] - mean
		resid[i] = series[i] - trend[i] - seasonal[i]
	}
	obs := make([]float64, n)
	copy(obs, series)
	return Decomposition{Observed: obs, Trend: trend, Seasonal: seasonal, Residual: resid}, nil
}

// movingAverage computes a centered moving average; ends are NaN.
func movingAverage(x []float64, period int) []float64 {
	n := len(x)
	out := make([]float64, n)
	half := period / 2
	for i := range out {
		out[i] = math.NaN()
		if i < half || i+half >= n {
			continue
		}
		var s float64
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				s += x[j]
			}
			out[i] = s / float64(period)
			continue
		}
		s = 0.5*x[i-half] + 0.5*x[i+half]
		for j := i - half + 1; j < i+half; j++ {
			s += x[j]
		}
		out[i] = s / float64(period)
	}
	return out
}
