// Package metrics defines the Prometheus collectors exported on /metrics in
// serve mode: per-title sync outcomes, per-item refresh outcomes, run counts
// and durations, and HTTP request statistics.
package metrics
