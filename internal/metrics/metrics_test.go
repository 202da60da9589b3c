package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mycinema/internal/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metricLoop
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollectorsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.TitleProcessed("movie", "added")
	c.TitleProcessed("movie", "added")
	c.TitleProcessed("show", "failed")
	c.ItemRefreshed("movie", "updated")
	c.RunFinished("sync", nil, time.Second)
	c.RunFinished("refresh", errors.New("boom"), time.Second)

	if got := counterValue(t, reg, "mycinema_sync_titles_total", map[string]string{"kind": "movie", "outcome": "added"}); got != 2 {
		t.Fatalf("expected 2 added movies, got %v", got)
	}
	if got := counterValue(t, reg, "mycinema_sync_titles_total", map[string]string{"kind": "show", "outcome": "failed"}); got != 1 {
		t.Fatalf("expected 1 failed show, got %v", got)
	}
	if got := counterValue(t, reg, "mycinema_refresh_items_total", map[string]string{"outcome": "updated"}); got != 1 {
		t.Fatalf("expected 1 refreshed item, got %v", got)
	}
	if got := counterValue(t, reg, "mycinema_runs_total", map[string]string{"operation": "refresh", "status": "error"}); got != 1 {
		t.Fatalf("expected 1 failed refresh run, got %v", got)
	}
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *metrics.Collectors
	c.TitleProcessed("movie", "added")
	c.ItemRefreshed("movie", "updated")
	c.RunFinished("sync", nil, time.Second)
	c.HTTPRequest("GET", "/api/catalog", 200, time.Millisecond)
}
