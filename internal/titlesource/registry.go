package titlesource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"mycinema/internal/catalog"
	"mycinema/internal/config"
	"mycinema/internal/services"
	"mycinema/internal/tmdb"
)

// CSFD custom-selection charts. The filter parameter encodes the chart's
// country, genre and type selection.
const (
	csfdTopMoviesPath        = "/zebricky/filmy/nejlepsi/"
	csfdTopShowsPath         = "/zebricky/serialy/nejlepsi/"
	csfdCzSkMoviesPath       = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbkYPWipzyanJ4vBwR5AljvM2IhpzHvBygqYPW5MJSlK2Mlo20vBz51oTjfVayyLKWsqT8vBz51oTjfVzSwqT9lVwcoKFjvMTylMJA0o3VvBygqsD"
	csfdCzMoviesPath         = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbkYPWipzyanJ4vBwRfVzqyoaWyVwcoKFjvrJIupy9zpz9gVwchqJkfYPW5MJSlK3EiVwchqJkfYPWuL3EipvV6J10fVzEcpzIwqT9lVwcoKK0"
	csfdCzSkShowsPath        = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbmYPWipzyanJ4vBwRfVzqyoaWyVwcoKFjvrJIupy9zpz9gVwchqJkfYPW5MJSlK3EiVwchqJkfYPWuL3EipvV6J10fVzEcpzIwqT9lVwcoKK0"
	csfdCzShowsPath          = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbmYPWipzyanJ4vBwR5AljvM2IhpzHvBygqYPW5MJSlK2Mlo20vBz51oTjfVayyLKWsqT8vBz51oTjfVzSwqT9lVwcoKFjvMTylMJA0o3VvBygqsD"
	csfdDocumentaryShowsPath = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbmYPWipzyanJ4vBz51oTjfVzqyoaWyVwcoZGAqYPW5MJSlK2Mlo20vBz51oTjfVayyLKWsqT8vBz51oTjfVzSwqT9lVwcoKFjvMTylMJA0o3VvBygqsD"
	csfdFairyTalesPath       = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbkYPWipzyanJ4vBz51oTjfVzqyoaWyVwcoZmOqYPW5MJSlK2Mlo20vBz51oTjfVayyLKWsqT8vBz51oTjfVzSwqT9lVwcoKFjvMTylMJA0o3VvBygqsD"
	csfdMusicalsPath         = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwbkYPWipzyanJ4vBz51oTjfVzqyoaWyVwcoZwWqYPW5MJSlK2Mlo20vBz51oTjfVayyLKWsqT8vBz51oTjfVzSwqT9lVwcoKFjvMTylMJA0o3VvBygqsD"
	csfdConcertsPath         = "/zebricky/vlastni-vyber/?filter=rlW0rKOyVwb2YPWipzyanJ4vBz51oTjfVzqyoaWyVwcoKFjvrJIupy9zpz9gVwchqJkfYPW5MJSlK3EiVwchqJkfYPWuL3EipvV6J10fVzEcpzIwqT9lVwcoKK0"
)

// tmdbListReserve is added to the sync target when paging TMDB lists, since
// many listed titles are skipped or rejected.
const tmdbListReserve = 2000

// ErrUnknownList is returned for list names the registry does not know.
var ErrUnknownList = fmt.Errorf("%w: unknown title list", services.ErrValidation)

// Registry maps list names to sources.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds the standard lists from configuration.
func NewRegistry(cfg *config.Config, tmdbClient *tmdb.Client, httpClient *http.Client, logger *slog.Logger) *Registry {
	scraper := NewScraper(ScraperOptions{
		BaseURL:          cfg.CSFD.BaseURL,
		UserAgent:        cfg.CSFD.UserAgent,
		MaxItems:         cfg.CSFD.MaxItems,
		MaxFilteredPages: cfg.CSFD.MaxFilteredPages,
		HTTPClient:       httpClient,
		Logger:           logger,
	})
	mergedCap := cfg.CSFD.MergedCap
	if mergedCap <= 0 {
		mergedCap = defaultCSFDMergedCap
	}
	r := &Registry{sources: make(map[string]Source)}

	selection := func(name string, kind catalog.Kind, paths ...string) Source {
		return &csfdSelection{name: name, kind: kind, paths: paths, mergedCap: mergedCap, scraper: scraper}
	}
	r.Register(&csfdChart{name: "csfd-top", kind: catalog.KindMovie, path: csfdTopMoviesPath, scraper: scraper})
	r.Register(&csfdChart{name: "csfd-top-shows", kind: catalog.KindShow, path: csfdTopShowsPath, scraper: scraper})
	r.Register(selection("csfd-czsk", catalog.KindMovie, csfdCzSkMoviesPath, csfdCzMoviesPath))
	r.Register(selection("csfd-czsk-shows", catalog.KindShow, csfdCzSkShowsPath, csfdCzShowsPath))
	r.Register(selection("csfd-documentary-shows", catalog.KindShow, csfdDocumentaryShowsPath))
	r.Register(selection("csfd-fairy-tales", catalog.KindMovie, csfdFairyTalesPath))
	r.Register(selection("csfd-musicals", catalog.KindMovie, csfdMusicalsPath))
	r.Register(selection("csfd-concerts", catalog.KindMovie, csfdConcertsPath))

	if tmdbClient != nil {
		maxPages := cfg.TMDB.ListMaxPages
		r.Register(&tmdbList{name: "tmdb-top-rated", kind: catalog.KindMovie, endpoint: "movie/top_rated", client: tmdbClient, maxPages: maxPages})
		r.Register(&tmdbList{name: "tmdb-now-playing", kind: catalog.KindMovie, endpoint: "movie/now_playing", client: tmdbClient, maxPages: maxPages})
		r.Register(&tmdbList{name: "tmdb-top-rated-shows", kind: catalog.KindShow, endpoint: "tv/top_rated", client: tmdbClient, maxPages: maxPages})
	}
	return r
}

// Register adds or replaces a source under its name.
func (r *Registry) Register(src Source) {
	r.sources[src.Name()] = src
}

// Names lists the registered list names for kind, sorted. An empty kind
// lists everything.
func (r *Registry) Names(kind catalog.Kind) []string {
	names := make([]string, 0, len(r.sources))
	for name, src := range r.sources {
		if kind == "" || src.Kind() == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Lookup returns the source registered under name.
func (r *Registry) Lookup(name string) (Source, bool) {
	src, ok := r.sources[strings.ToLower(strings.TrimSpace(name))]
	return src, ok
}

// Titles fetches the named lists for kind concurrently and merges them.
// target is the number of items the sync wants to add.
func (r *Registry) Titles(ctx context.Context, kind catalog.Kind, names []string, target int) ([]string, error) {
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrValidation, "titlesource", "titles", "at least one list required", nil)
	}
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		src, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownList, name, strings.Join(r.Names(kind), ", "))
		}
		if src.Kind() != kind {
			return nil, services.Wrap(services.ErrValidation, "titlesource", "titles", fmt.Sprintf("list %q holds %ss, not %ss", name, src.Kind(), kind), nil)
		}
		sources = append(sources, src)
	}
	limit := 0
	if target > 0 {
		limit = target + tmdbListReserve
	}
	return FetchAll(ctx, limit, sources...)
}
