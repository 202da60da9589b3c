// Package titlesource produces ordered candidate title lists for catalog sync.
//
// Lists come from two places: CSFD ranking pages, scraped with goquery, and
// TMDB ranked lists fetched page by page through the tmdb client. A Registry
// maps list names such as "csfd-czsk" or "tmdb-top-rated" to sources. When a
// sync asks for several lists they are fetched concurrently and merged by
// interleaving, first occurrence wins. This is the only concurrent phase of a
// run; everything after the merge is sequential.
package titlesource
