// Package linkmatch turns noisy full-text search results into a handful of
// playable file links for one movie or episode.
//
// Match filters candidates by title keywords, episode marker and container
// extension, then ranks them. SelectTiers picks at most one file per size
// ceiling so a catalog entry ends up with a spread of qualities, and never
// reuses a file already claimed elsewhere. Resolver composes both with a
// Searcher backend.
package linkmatch
