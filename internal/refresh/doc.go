// Package refresh keeps automatic links of catalogued items from going stale.
//
// A pass selects items without a verified link whose links are missing,
// never checked or older than the staleness window, re-runs the link resolver
// for the movie or for every episode of the show, and replaces the automatic
// links. Each item is stamped as checked even when nothing was found, so it is
// not picked again on the next pass. Results are persisted in small
// checkpoints to keep transactions short.
package refresh
