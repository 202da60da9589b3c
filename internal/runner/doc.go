// Package runner assembles the sync engine and the link refresher from
// configuration and makes sure only one run touches the catalog at a time.
//
// Runs are serialized inside the process with a mutex and across processes
// with a flock-held lock file next to the database, so a CLI invocation and
// the serve-mode scheduler never interleave. Every run gets a UUID that is
// carried in the context and shows up on each log line it produces.
package runner
