// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from table loads, analysis runs, and exports.
//
// The rest of the code records through the package-level helpers; the binary
// installs a concrete backend (Prometheus Pushgateway or DogStatsD) with
// SetBackend. Until then a no-op backend is used, so instrumentation is always
// safe to call.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "insights_step_total"
	StepDurationSeconds = "insights_step_duration_seconds"
	RowsTotal           = "insights_rows_total"
	BatchesTotal        = "insights_batches_total"
)

// Row kinds recorded with RecordRow.
const (
	KindLoaded      = "loaded"       // rows put into the table store
	KindParseErrors = "parse_errors" // CSV rows skipped for a wrong width
	KindSummary     = "summary"      // rows in an analysis result
	KindExcluded    = "excluded"     // rows dropped by a metric's edge-case policy
	KindExported    = "exported"     // rows written to the export store
)

// Labels are attached to every sample.
type Labels map[string]string

// Backend receives samples. Implementations must be safe for concurrent use;
// analyses and loads record from several goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush delivers buffered samples, e.g. a Pushgateway push.
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}
func (nop) Flush() error                             { return nil }

type holder struct{ Backend }

var active atomic.Pointer[holder]

func init() { active.Store(&holder{nop{}}) }

// SetBackend installs b. A nil b is ignored.
func SetBackend(b Backend) {
	if b != nil {
		active.Store(&holder{b})
	}
}

func current() Backend { return active.Load().Backend }

// Flush flushes the installed backend.
func Flush() error { return current().Flush() }

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts and times one step, such as "ingest:ProductInventory" or
// "analysis:fill-rate-by-category".
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta rows of kind; non-positive deltas are dropped.
func RecordRow(job, kind string, delta int64) {
	if delta > 0 {
		current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
	}
}

// RecordBatches adds delta CopyFrom batches.
func RecordBatches(job string, delta int64) {
	if delta > 0 {
		current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
	}
}
