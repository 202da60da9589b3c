// Package main hosts the mycinema CLI entrypoint and command graph.
//
// The Cobra command tree runs catalog syncs and link refreshes in-process
// against the local SQLite catalog, exposes catalog maintenance (listing,
// backup and restore, blacklist and watch history), and starts serve mode.
// Output is a table when stdout is a terminal and JSON otherwise.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is only surfaced here through commands and flags.
package main
