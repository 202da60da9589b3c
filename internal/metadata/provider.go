package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"mycinema/internal/catalog"
	"mycinema/internal/logging"
	"mycinema/internal/services"
	"mycinema/internal/textutil"
	"mycinema/internal/tmdb"
)

// Provider looks titles up on TMDB.
type Provider struct {
	client *tmdb.Client
	cache  *cache.Cache
	logger *slog.Logger
}

// notFound marks a cached miss.
type notFound struct{}

// New builds a provider. A non-positive ttl disables caching.
func New(client *tmdb.Client, ttl time.Duration, logger *slog.Logger) *Provider {
	p := &Provider{
		client: client,
		logger: logging.NewComponentLogger(logger, "metadata"),
	}
	if ttl > 0 {
		p.cache = cache.New(ttl, 2*ttl)
	}
	return p
}

// LookupByTitle returns canonical metadata for title. The first TMDB search
// hit wins. A title with no hit yields an ErrNotFound error. The returned item
// is a fresh copy the caller may modify.
func (p *Provider) LookupByTitle(ctx context.Context, kind catalog.Kind, title string) (*catalog.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "metadata", "lookup", "title must not be empty", nil)
	}
	key := cacheKey(kind, title)
	if p.cache != nil {
		if cached, found := p.cache.Get(key); found {
			switch v := cached.(type) {
			case *catalog.Item:
				return cloneItem(v), nil
			case notFound:
				return nil, missing(kind, title)
			}
		}
	}

	var (
		item *catalog.Item
		err  error
	)
	switch kind {
	case catalog.KindMovie:
		item, err = p.lookupMovie(ctx, title)
	case catalog.KindShow:
		item, err = p.lookupShow(ctx, title)
	default:
		return nil, services.Wrap(services.ErrValidation, "metadata", "lookup", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	if err != nil {
		if errors.Is(err, services.ErrNotFound) && p.cache != nil {
			p.cache.Set(key, notFound{}, cache.DefaultExpiration)
		}
		return nil, err
	}
	item.NormalizedTitle = textutil.Normalize(item.Title)
	if p.cache != nil {
		p.cache.Set(key, cloneItem(item), cache.DefaultExpiration)
	}
	p.logger.Debug("metadata resolved",
		logging.String(logging.FieldTitle, title),
		logging.String("canonical_title", item.Title),
		logging.Int64("tmdb_id", item.ExternalID),
		logging.Int("year", item.Year),
	)
	return item, nil
}

func (p *Provider) lookupMovie(ctx context.Context, title string) (*catalog.Item, error) {
	resp, err := p.client.SearchMovie(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, missing(catalog.KindMovie, title)
	}
	hit := resp.Results[0]
	item := &catalog.Item{
		Kind:        catalog.KindMovie,
		ExternalID:  hit.ID,
		Title:       hit.DisplayTitle(),
		Year:        tmdb.ParseYear(hit.ReleaseDate),
		Overview:    hit.Overview,
		PosterPath:  hit.PosterPath,
		VoteAverage: hit.VoteAverage,
	}
	if hit.ID <= 0 {
		return item, nil
	}
	details, err := p.client.GetMovieDetails(ctx, hit.ID)
	if err != nil {
		return nil, err
	}
	if t := details.DisplayTitle(); t != "" {
		item.Title = t
	}
	if year := tmdb.ParseYear(details.ReleaseDate); year > 0 {
		item.Year = year
	}
	if details.Overview != "" {
		item.Overview = details.Overview
	}
	item.Runtime = details.Runtime
	item.Genres = genreNames(details.Genres)
	return item, nil
}

func (p *Provider) lookupShow(ctx context.Context, title string) (*catalog.Item, error) {
	resp, err := p.client.SearchTV(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, missing(catalog.KindShow, title)
	}
	hit := resp.Results[0]
	item := &catalog.Item{
		Kind:        catalog.KindShow,
		ExternalID:  hit.ID,
		Title:       hit.DisplayTitle(),
		Year:        tmdb.ParseYear(hit.FirstAirDate),
		Overview:    hit.Overview,
		PosterPath:  hit.PosterPath,
		VoteAverage: hit.VoteAverage,
	}
	if hit.ID <= 0 {
		return item, nil
	}
	details, err := p.client.GetTVDetails(ctx, hit.ID)
	if err != nil {
		return nil, err
	}
	if t := details.DisplayTitle(); t != "" {
		item.Title = t
	}
	item.Genres = genreNames(details.Genres)

	for _, summary := range details.Seasons {
		season, err := p.client.GetSeasonDetails(ctx, hit.ID, summary.SeasonNumber)
		if err != nil {
			return nil, err
		}
		if len(season.Episodes) == 0 {
			continue
		}
		airDate := season.AirDate
		if airDate == "" {
			airDate = summary.AirDate
		}
		entry := catalog.Season{Number: summary.SeasonNumber, Year: tmdb.ParseYear(airDate)}
		for _, ep := range season.Episodes {
			entry.Episodes = append(entry.Episodes, catalog.Episode{
				Number:  ep.EpisodeNumber,
				Title:   ep.Name,
				Runtime: ep.Runtime,
			})
		}
		item.Seasons = append(item.Seasons, entry)
	}
	return item, nil
}

func genreNames(genres []tmdb.Genre) []string {
	if len(genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func missing(kind catalog.Kind, title string) error {
	return services.Wrap(services.ErrNotFound, "metadata", "lookup", fmt.Sprintf("no %s matches %q", kind, title), nil)
}

func cacheKey(kind catalog.Kind, title string) string {
	return string(kind) + ":" + strings.ToLower(title)
}

func cloneItem(src *catalog.Item) *catalog.Item {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Genres = append([]string(nil), src.Genres...)
	dst.Links = append([]catalog.Link(nil), src.Links...)
	dst.Seasons = make([]catalog.Season, len(src.Seasons))
	for i, season := range src.Seasons {
		season.Episodes = append([]catalog.Episode(nil), season.Episodes...)
		for j := range season.Episodes {
			season.Episodes[j].Links = append([]catalog.Link(nil), season.Episodes[j].Links...)
		}
		dst.Seasons[i] = season
	}
	if len(src.Seasons) == 0 {
		dst.Seasons = nil
	}
	return &dst
}
