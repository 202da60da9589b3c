// Package logging assembles structured slog loggers and formatting helpers used
// across mycinema.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so sync and refresh code can tag
// log lines with run IDs, list names, and catalog item IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
