package daemon

import (
	"net/http"
	"strings"
	"time"

	"mycinema/internal/metrics"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func metricsMiddleware(collectors *metrics.Collectors, next http.Handler) http.Handler {
	if collectors == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		collectors.HTTPRequest(r.Method, normalizeRoute(r.URL.Path), rw.status, time.Since(start))
	})
}

// normalizeRoute keeps label cardinality bounded by collapsing item ids.
func normalizeRoute(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/catalog/"):
		if strings.HasSuffix(strings.TrimRight(path, "/"), "/links") {
			return "/api/catalog/{id}/links"
		}
		return "/api/catalog/{id}"
	case path == "/api/status", path == "/api/lists", path == "/api/sync",
		path == "/api/refresh-links", path == "/api/update-metadata", path == "/api/find-links", path == "/api/catalog", path == "/api/blacklist",
		path == "/api/history", path == "/api/export", path == "/api/import", path == "/api/logs":
		return path
	default:
		return "/other"
	}
}
