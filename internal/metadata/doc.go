// Package metadata resolves a free-form title to canonical catalog metadata
// using TMDB. Movies carry details and genres; shows additionally carry every
// season TMDB lists that has episodes. Lookups are cached in memory for the
// configured TTL, misses included.
package metadata
