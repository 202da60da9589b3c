package linkmatch

import (
	"context"
	"log/slog"

	"mycinema/internal/logging"
)

// Searcher is the full-text file search backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Resolver turns a Query into tiered file selections.
type Resolver struct {
	searcher    Searcher
	matcher     Matcher
	movieTiers  []int64
	seriesTiers []int64
	maxLinks    int
	logger      *slog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithTiers overrides the movie and series size ceilings.
func WithTiers(movie, series []int64) ResolverOption {
	return func(r *Resolver) {
		if len(movie) > 0 {
			r.movieTiers = movie
		}
		if len(series) > 0 {
			r.seriesTiers = series
		}
	}
}

// WithExtensions overrides the playable extensions.
func WithExtensions(exts []string) ResolverOption {
	return func(r *Resolver) {
		r.matcher = NewMatcher(exts)
	}
}

// WithMaxLinks caps the number of selections per query. Zero means one per tier.
func WithMaxLinks(n int) ResolverOption {
	return func(r *Resolver) {
		r.maxLinks = n
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver constructs a Resolver with default tiers and extensions.
func NewResolver(searcher Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		searcher:    searcher,
		matcher:     NewMatcher(nil),
		movieTiers:  MovieTiers(),
		seriesTiers: SeriesTiers(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "links")
	return r
}

// FindLinks searches, filters, ranks and selects files for q. Selected ids are
// added to claimed. An empty result with a nil error means nothing matched.
func (r *Resolver) FindLinks(ctx context.Context, q Query, claimed ClaimSet) ([]Candidate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	files, err := r.searcher.Search(ctx, q.SearchText())
	if err != nil {
		return nil, err
	}
	matched, err := r.matcher.Match(files, q)
	if err != nil {
		return nil, err
	}

	ceilings := r.movieTiers
	if q.IsSeries() {
		ceilings = r.seriesTiers
	}
	if r.maxLinks > 0 && len(ceilings) > r.maxLinks {
		ceilings = ceilings[:r.maxLinks]
	}
	selected := SelectTiers(matched, ceilings, claimed)

	logging.WithContext(ctx, r.logger).Debug("links resolved",
		logging.String(logging.FieldTitle, q.Title),
		logging.Int("year", q.Year),
		logging.Int("season", q.Season),
		logging.Int("episode", q.Episode),
		logging.Int("results", len(files)),
		logging.Int("matched", len(matched)),
		logging.Int("selected", len(selected)),
	)
	return selected, nil
}
