// Package ingest grows the catalog from ordered candidate title lists.
//
// Engine.SyncFromTitles walks the candidate titles once, in order. Each title
// is deduplicated against the catalog snapshot and the decisions made earlier
// in the same run, looked up on the metadata provider, checked against the
// content policy and matched to playable files. New items and blacklist
// entries are staged in memory and written in a single transaction when the
// run ends, so an aborted run leaves the catalog untouched and can simply be
// repeated.
package ingest
