// Package webshare implements the file-search backend used to discover
// playable file references.
//
// A Session owns the API token: it logs in lazily on first use, caches the
// token for the life of the process and lets concurrent first callers share a
// single in-flight login. Client.Search posts full-text queries with that token
// and converts the XML response into linkmatch candidates.
package webshare
