package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mycinema"

// Collectors groups every metric the service exports. Each instance owns its
// collectors so tests can register against a private registry.
type Collectors struct {
	SyncTitlesTotal     *prometheus.CounterVec
	RefreshItemsTotal   *prometheus.CounterVec
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		SyncTitlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_titles_total",
			Help:      "Candidate titles processed by sync runs, by media kind and outcome.",
		}, []string{"kind", "outcome"}),

		RefreshItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_items_total",
			Help:      "Catalog items processed by link refresh passes, by media kind and outcome.",
		}, []string{"kind", "outcome"}),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync and refresh runs by operation and status.",
		}, []string{"operation", "status"}),

		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of sync and refresh runs in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}, []string{"operation"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(
			c.SyncTitlesTotal,
			c.RefreshItemsTotal,
			c.RunsTotal,
			c.RunDuration,
			c.HTTPRequestsTotal,
			c.HTTPRequestDuration,
		)
	}
	return c
}

// TitleProcessed counts one sync decision.
func (c *Collectors) TitleProcessed(kind, outcome string) {
	if c == nil {
		return
	}
	c.SyncTitlesTotal.WithLabelValues(kind, outcome).Inc()
}

// ItemRefreshed counts one refresh decision.
func (c *Collectors) ItemRefreshed(kind, outcome string) {
	if c == nil {
		return
	}
	c.RefreshItemsTotal.WithLabelValues(kind, outcome).Inc()
}

// RunFinished records the outcome and duration of a run.
func (c *Collectors) RunFinished(operation string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.RunsTotal.WithLabelValues(operation, status).Inc()
	c.RunDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// HTTPRequest records one served request.
func (c *Collectors) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
