// Package services defines shared utilities consumed by the ingestion and
// refresh pipelines and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, list names, and catalog item IDs for
//     logging.
//   - Structured error markers plus the Wrap helper that let callers separate
//     per-title failures (not found, policy, transient) from fatal store errors.
package services
