package datadog

import (
	"reflect"
	"testing"

	"insights/internal/metrics"
)

type recorder struct {
	counts []string
	hists  []string
	tags   [][]string
	closed bool
}

func (r *recorder) Count(name string, value int64, tags []string, rate float64) error {
	r.counts = append(r.counts, name)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recorder) Histogram(name string, value float64, tags []string, rate float64) error {
	r.hists = append(r.hists, name)
	return nil
}

func (r *recorder) Close() error { r.closed = true; return nil }

/* TestLabelsToTags verifies tag order and colon escaping. */
func TestLabelsToTags(t *testing.T) {
	got := labelsToTags(metrics.Labels{"step": "analysis:seasonality", "job": "insights"})
	want := []string{"job:insights", "step:analysis.seasonality"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("nil labels should give nil tags")
	}
}

/* TestBackendForwards verifies counters, histograms and Flush reach the client. */
func TestBackendForwards(t *testing.T) {
	r := &recorder{}
	b := &Backend{client: r}
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": "excluded"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.1, nil)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.counts, []string{metrics.RowsTotal}) || !reflect.DeepEqual(r.hists, []string{metrics.StepDurationSeconds}) {
		t.Fatalf("counts=%v hists=%v", r.counts, r.hists)
	}
	if !reflect.DeepEqual(r.tags[0], []string{"kind:excluded"}) || !r.closed {
		t.Fatalf("tags=%v closed=%v", r.tags, r.closed)
	}
}

/* TestNewBackendRequiresAddr verifies an empty address is rejected. */
func TestNewBackendRequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error")
	}
}
