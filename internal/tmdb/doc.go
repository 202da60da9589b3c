// Package tmdb provides the minimal TMDB API client used for catalog metadata.
//
// It authenticates requests and exposes movie and TV search, movie/TV detail
// retrieval, season/episode lookups, and the paginated ranked lists
// (top rated, now playing) that feed bulk ingestion. Requests are rate limited
// and failures are tagged with services error markers so callers can tell a
// missing title from a flaky network. Options allow tests to supply custom HTTP
// clients without modifying production code.
package tmdb
