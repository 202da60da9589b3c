// Package catalog persists the movie and show catalog in SQLite.
//
// The Store owns catalog items (movies and shows with their seasons and
// episodes), the file links attached to them, the permanent title blacklist
// and the watch history. Links reference their owner through item or episode
// ids; there are no back-pointers in the in-memory model. Automatic writers
// never delete a verified link: the SQL paths that drop links are guarded on
// verified = 0.
//
// Sync runs read a Snapshot up front and write everything they staged in one
// CommitSync transaction, so a failed run leaves the database untouched.
// Schema changes bump catalogSchemaVersion in schema.go; databases stamped
// with another version are rejected with ErrSchemaMismatch.
package catalog
