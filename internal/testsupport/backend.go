package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// BackendMovie is one movie known to the fake backend together with the
// files a Webshare search for it returns.
type BackendMovie struct {
	ID     int64
	Title  string
	Year   int
	Genres []string
	Files  []BackendFile
}

// BackendFile is a Webshare search hit.
type BackendFile struct {
	Ident string
	Name  string
	Size  int64
}

// Backend serves the TMDB movie endpoints and the Webshare login and search
// endpoints from one httptest server.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	movies   map[string]BackendMovie
	byID     map[int64]BackendMovie
	searches []string
}

// NewBackend starts a fake backend knowing movies. Point a config at it with
// WithTMDB(b.URL, ...) and WithWebshare(b.URL, ...).
func NewBackend(t testing.TB, movies ...BackendMovie) *Backend {
	t.Helper()
	b := &Backend{movies: make(map[string]BackendMovie), byID: make(map[int64]BackendMovie)}
	for _, movie := range movies {
		b.movies[movie.Title] = movie
		b.byID[movie.ID] = movie
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", b.handleTMDBSearch)
	mux.HandleFunc("/movie/", b.handleTMDBDetails)
	mux.HandleFunc("/salt/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><status>OK</status><salt>Xy7abc12</salt></response>`))
	})
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<response><status>OK</status><token>backend-token</token></response>`))
	})
	mux.HandleFunc("/search/", b.handleWebshareSearch)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// Searches returns the Webshare queries received so far.
func (b *Backend) Searches() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.searches...)
}

func (b *Backend) handleTMDBSearch(w http.ResponseWriter, r *http.Request) {
	results := []map[string]any{}
	if movie, ok := b.movies[r.URL.Query().Get("query")]; ok {
		results = append(results, map[string]any{
			"id":           movie.ID,
			"title":        movie.Title,
			"release_date": releaseDate(movie.Year),
		})
	}
	writeBackendJSON(w, map[string]any{"page": 1, "results": results, "total_pages": 1, "total_results": len(results)})
}

func (b *Backend) handleTMDBDetails(w http.ResponseWriter, r *http.Request) {
	var id int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/movie/"), "%d", &id); err != nil {
		http.NotFound(w, r)
		return
	}
	movie, ok := b.byID[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	genres := make([]map[string]any, 0, len(movie.Genres))
	for i, name := range movie.Genres {
		genres = append(genres, map[string]any{"id": i + 1, "name": name})
	}
	writeBackendJSON(w, map[string]any{
		"id":           movie.ID,
		"title":        movie.Title,
		"release_date": releaseDate(movie.Year),
		"runtime":      100,
		"genres":       genres,
	})
}

func (b *Backend) handleWebshareSearch(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("wst") != "backend-token" {
		_, _ = w.Write([]byte(`<response><status>FATAL</status><code>SEARCH_FATAL_1</code></response>`))
		return
	}
	query := r.FormValue("what")
	b.mu.Lock()
	b.searches = append(b.searches, query)
	b.mu.Unlock()

	var files []BackendFile
	for _, movie := range b.movies {
		if strings.HasPrefix(query, movie.Title) {
			files = append(files, movie.Files...)
		}
	}
	var body strings.Builder
	fmt.Fprintf(&body, "<response><status>OK</status><total>%d</total>", len(files))
	for _, file := range files {
		fmt.Fprintf(&body, "<file><ident>%s</ident><name>%s</name><size>%d</size></file>", file.Ident, file.Name, file.Size)
	}
	body.WriteString("</response>")
	_, _ = w.Write([]byte(body.String()))
}

func releaseDate(year int) string {
	if year <= 0 {
		return ""
	}
	return fmt.Sprintf("%04d-01-01", year)
}

func writeBackendJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
