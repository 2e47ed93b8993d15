// Package prompush pushes dashboard metrics to a Prometheus Pushgateway.
//
// Each batch run (a CLI invocation or an export triggered from the API) is a
// short-lived process from Prometheus' point of view, so there is no scrape
// endpoint; Flush pushes the registry under the configured job name instead.
package prompush

import (
	"fmt"

	"insights/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	steps    *prometheus.CounterVec // metrics.StepTotal
	duration *prometheus.SummaryVec // metrics.StepDurationSeconds
	rows     *prometheus.CounterVec // metrics.RowsTotal
	batches  prometheus.Counter     // metrics.BatchesTotal
}

// NewBackend builds a backend that pushes to gatewayURL under jobName.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "insights"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Loads, analyses and exports run, by step and status.",
		}, []string{"step", "status"}),
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Step duration in seconds, by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts by kind (loaded, parse_errors, summary, excluded, exported).",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Export batches flushed to the result store.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":  b.steps,
		"step summary":  b.duration,
		"row counter":   b.rows,
		"batch counter": b.batches,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.steps != nil {
			b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RowsTotal:
		if b.rows != nil {
			b.rows.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batches != nil {
			b.batches.Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
