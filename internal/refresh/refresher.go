package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mycinema/internal/catalog"
	"mycinema/internal/linkmatch"
	"mycinema/internal/logging"
	"mycinema/internal/services"
)

const (
	defaultStaleAfter      = 90 * 24 * time.Hour
	defaultMaxLinks        = 4
	defaultCheckpointEvery = 10
)

// LinkResolver finds playable files for a query, skipping and extending claimed.
type LinkResolver interface {
	FindLinks(ctx context.Context, q linkmatch.Query, claimed linkmatch.ClaimSet) ([]linkmatch.Candidate, error)
}

// Store is the slice of the catalog the refresher reads and writes.
type Store interface {
	StaleItems(ctx context.Context, cutoff time.Time) ([]*catalog.Item, error)
	FileIDs(ctx context.Context) ([]string, error)
	ApplyRefresh(ctx context.Context, updates []catalog.RefreshUpdate) error
}

// Recorder observes per-item outcomes.
type Recorder interface {
	ItemRefreshed(kind, outcome string)
}

// Result summarizes one refresh pass.
type Result struct {
	Updated       int      `json:"updated"`
	Failed        int      `json:"failed"`
	UpdatedTitles []string `json:"updated_titles"`
	FailedTitles  []string `json:"failed_titles"`
}

// Options tune a Refresher. Zero values fall back to the defaults.
type Options struct {
	StaleAfter      time.Duration
	MaxLinks        int
	CheckpointEvery int
	RequestTimeout  time.Duration
	Recorder        Recorder
	Logger          *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Refresher re-resolves automatic links of stale catalog items.
type Refresher struct {
	store           Store
	links           LinkResolver
	staleAfter      time.Duration
	maxLinks        int
	checkpointEvery int
	timeout         time.Duration
	recorder        Recorder
	logger          *slog.Logger
	now             func() time.Time
}

// New builds a refresher.
func New(store Store, links LinkResolver, opts Options) *Refresher {
	r := &Refresher{
		store:           store,
		links:           links,
		staleAfter:      opts.StaleAfter,
		maxLinks:        opts.MaxLinks,
		checkpointEvery: opts.CheckpointEvery,
		timeout:         opts.RequestTimeout,
		recorder:        opts.Recorder,
		logger:          logging.NewComponentLogger(opts.Logger, "refresh"),
		now:             opts.Now,
	}
	if r.staleAfter <= 0 {
		r.staleAfter = defaultStaleAfter
	}
	if r.maxLinks <= 0 {
		r.maxLinks = defaultMaxLinks
	}
	if r.checkpointEvery <= 0 {
		r.checkpointEvery = defaultCheckpointEvery
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// RefreshStaleLinks re-resolves every stale item. Items holding a verified
// link are never touched. Every processed item is stamped as checked whether
// or not links were found, and progress is persisted every checkpointEvery
// items. Only store failures abort the pass.
func (r *Refresher) RefreshStaleLinks(ctx context.Context) (Result, error) {
	logger := logging.WithContext(ctx, r.logger)
	started := r.now()
	result := Result{UpdatedTitles: []string{}, FailedTitles: []string{}}

	items, err := r.store.StaleItems(ctx, started.Add(-r.staleAfter))
	if err != nil {
		return result, fmt.Errorf("select stale items: %w", err)
	}
	if len(items) == 0 {
		logger.Info("no stale items")
		return result, nil
	}
	fileIDs, err := r.store.FileIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("load claimed files: %w", err)
	}
	claimed := linkmatch.NewClaimSet(fileIDs...)
	logger.Info("refresh started", logging.Int("stale_items", len(items)))

	pending := make([]catalog.RefreshUpdate, 0, r.checkpointEvery)
	flush := func(ctx context.Context) error {
		if len(pending) == 0 {
			return nil
		}
		if err := r.store.ApplyRefresh(ctx, pending); err != nil {
			return err
		}
		logger.Debug("refresh checkpoint", logging.Int("items", len(pending)))
		pending = pending[:0]
		return nil
	}

	// Cancellation keeps the finished items and leaves the interrupted one as it was.
	cancelled := func() (Result, error) {
		if err := flush(context.WithoutCancel(ctx)); err != nil {
			return result, err
		}
		logger.Info("refresh cancelled",
			logging.Int("updated", result.Updated),
			logging.Int("failed", result.Failed),
		)
		return result, ctx.Err()
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return cancelled()
		}
		itemLogger := logging.WithContext(services.WithItemID(ctx, item.ID), r.logger).
			With(logging.String(logging.FieldTitle, item.Title))

		update, found, err := r.refreshItem(ctx, item, claimed)
		if ctx.Err() != nil {
			return cancelled()
		}
		switch {
		case services.IsFatal(err):
			return result, err
		case err != nil:
			itemLogger.Warn("link refresh failed", logging.Error(err))
			result.Failed++
			result.FailedTitles = append(result.FailedTitles, item.Title)
			r.record(item, "failed")
		case found == 0:
			itemLogger.Info("no links found")
			result.Failed++
			result.FailedTitles = append(result.FailedTitles, item.Title)
			r.record(item, "no_links")
		default:
			itemLogger.Info("links refreshed", logging.Int("links", found))
			result.Updated++
			result.UpdatedTitles = append(result.UpdatedTitles, item.Title)
			r.record(item, "updated")
		}

		pending = append(pending, update)
		if len(pending) >= r.checkpointEvery {
			if err := flush(ctx); err != nil {
				return result, err
			}
		}
	}
	if err := flush(context.WithoutCancel(ctx)); err != nil {
		return result, err
	}
	logger.Info("refresh finished",
		logging.Int("updated", result.Updated),
		logging.Int("failed", result.Failed),
		logging.Duration("elapsed", r.now().Sub(started)),
	)
	return result, nil
}

// refreshItem releases the item's current files and resolves new ones. The
// returned update is always usable: on error it clears the item's links and
// only stamps the check time.
func (r *Refresher) refreshItem(ctx context.Context, item *catalog.Item, claimed linkmatch.ClaimSet) (catalog.RefreshUpdate, int, error) {
	update := catalog.RefreshUpdate{ItemID: item.ID, CheckedAt: r.now().UTC()}
	for _, link := range item.AllLinks() {
		claimed.Release(link.FileID)
	}

	var taken []string
	resolve := func(q linkmatch.Query) ([]catalog.Link, error) {
		callCtx, cancel := r.callContext(ctx)
		defer cancel()
		selected, err := r.links.FindLinks(callCtx, q, claimed)
		if err != nil {
			return nil, err
		}
		if len(selected) > r.maxLinks {
			for _, extra := range selected[r.maxLinks:] {
				claimed.Release(extra.ID)
			}
			selected = selected[:r.maxLinks]
		}
		links := make([]catalog.Link, 0, len(selected))
		for _, c := range selected {
			taken = append(taken, c.ID)
			links = append(links, catalog.Link{FileID: c.ID, Quality: linkmatch.QualityLabel(c.Size)})
		}
		return links, nil
	}
	fail := func(err error) (catalog.RefreshUpdate, int, error) {
		for _, id := range taken {
			claimed.Release(id)
		}
		return catalog.RefreshUpdate{ItemID: update.ItemID, CheckedAt: update.CheckedAt}, 0, err
	}

	if item.Kind == catalog.KindMovie {
		links, err := resolve(linkmatch.Query{Title: item.Title, Year: item.Year})
		if err != nil {
			return fail(err)
		}
		update.ItemLinks = links
		return update, len(links), nil
	}

	found := 0
	update.EpisodeLinks = make(map[int64][]catalog.Link)
	for _, season := range item.Seasons {
		if season.Number <= 0 {
			continue
		}
		year := season.Year
		if year == 0 {
			year = item.Year
		}
		for _, episode := range season.Episodes {
			links, err := resolve(linkmatch.Query{Title: item.Title, Year: year, Season: season.Number, Episode: episode.Number})
			if err != nil {
				return fail(fmt.Errorf("season %d episode %d: %w", season.Number, episode.Number, err))
			}
			if len(links) > 0 {
				update.EpisodeLinks[episode.ID] = links
				found += len(links)
			}
		}
	}
	return update, found, nil
}

func (r *Refresher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Refresher) record(item *catalog.Item, outcome string) {
	if r.recorder != nil {
		r.recorder.ItemRefreshed(string(item.Kind), outcome)
	}
}
