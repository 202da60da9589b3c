package titlesource

import (
	"context"
	"strings"

	"mycinema/internal/catalog"
	"mycinema/internal/tmdb"
)

const defaultTMDBListPages = 50

// listClient is the slice of the TMDB client a ranked list needs.
type listClient interface {
	ListPage(ctx context.Context, list string, page int) (*tmdb.Response, error)
}

// tmdbList pages through a TMDB ranked list such as "movie/top_rated".
type tmdbList struct {
	name     string
	kind     catalog.Kind
	endpoint string
	client   listClient
	maxPages int
}

func (l *tmdbList) Name() string       { return l.name }
func (l *tmdbList) Kind() catalog.Kind { return l.kind }

// Titles collects titles page by page until limit titles are gathered, the
// list runs out of pages, or maxPages is reached. Only the first page's
// failure is returned; later failures end the walk with what was collected.
func (l *tmdbList) Titles(ctx context.Context, limit int) ([]string, error) {
	maxPages := l.maxPages
	if maxPages <= 0 {
		maxPages = defaultTMDBListPages
	}
	var titles []string
	totalPages := 1
	for page := 1; page <= totalPages && page <= maxPages; page++ {
		if limit > 0 && len(titles) >= limit {
			break
		}
		resp, err := l.client.ListPage(ctx, l.endpoint, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}
		totalPages = resp.TotalPages
		for _, result := range resp.Results {
			if title := strings.TrimSpace(result.DisplayTitle()); title != "" {
				titles = append(titles, title)
			}
		}
	}
	if limit > 0 && len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}
