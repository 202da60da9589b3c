// Package daemon runs mycinema in serve mode.
//
// It wires the runner into a single lifecycle: an HTTP API for triggering
// syncs and refreshes and for maintaining the catalog, a ticker that
// refreshes stale links on the configured cadence, Prometheus metrics on
// /metrics, and a live tail of recent log events. Only one run executes at a
// time; triggers that arrive while a run is active are rejected rather than
// queued.
//
// Keep pipeline logic out of here: ingestion and refresh live in their own
// packages and the daemon only schedules them and reports their outcome.
package daemon
