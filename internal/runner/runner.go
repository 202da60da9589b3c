package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mycinema/internal/catalog"
	"mycinema/internal/config"
	"mycinema/internal/ingest"
	"mycinema/internal/linkmatch"
	"mycinema/internal/logging"
	"mycinema/internal/metadata"
	"mycinema/internal/metrics"
	"mycinema/internal/refresh"
	"mycinema/internal/services"
	"mycinema/internal/titlesource"
	"mycinema/internal/tmdb"
	"mycinema/internal/webshare"
)

// ErrRunInProgress is returned when another sync or refresh run holds the lock.
var ErrRunInProgress = errors.New("another sync or refresh run is in progress")

// Options carries optional collaborators.
type Options struct {
	Logger     *slog.Logger
	Metrics    *metrics.Collectors
	HTTPClient *http.Client
}

// Runner wires the catalog pipelines together and serializes their runs.
type Runner struct {
	cfg       *config.Config
	store     *catalog.Store
	registry  *titlesource.Registry
	engine    *ingest.Engine
	updater   *ingest.Updater
	refresher *refresh.Refresher
	resolver  *linkmatch.Resolver
	metrics   *metrics.Collectors
	logger    *slog.Logger

	running sync.Mutex
	lock    *flock.Flock
}

// New builds every collaborator from cfg around an open store.
func New(cfg *config.Config, store *catalog.Store, opts Options) (*Runner, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("runner requires config and store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	tmdbOpts := []tmdb.Option{tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond)}
	if opts.HTTPClient != nil {
		tmdbOpts = append(tmdbOpts, tmdb.WithHTTPClient(opts.HTTPClient))
	}
	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdbOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "tmdb client", "", err)
	}

	files, err := webshare.New(cfg.Webshare.BaseURL, cfg.Webshare.Username, cfg.Webshare.Password,
		webshare.WithHTTPClient(opts.HTTPClient),
		webshare.WithRateLimit(cfg.Webshare.RequestsPerSecond),
		webshare.WithSearchLimit(cfg.Webshare.SearchLimit),
		webshare.WithCategory(cfg.Webshare.Category),
		webshare.WithLogger(logger),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "webshare client", "", err)
	}

	resolver := linkmatch.NewResolver(files,
		linkmatch.WithTiers(cfg.MovieTierBytes(), cfg.SeriesTierBytes()),
		linkmatch.WithExtensions(cfg.Sync.VideoExtensions),
		linkmatch.WithLogger(logger),
	)
	provider := metadata.New(tmdbClient, time.Duration(cfg.TMDB.CacheTTLMinutes)*time.Minute, logger)

	r := &Runner{
		cfg:      cfg,
		store:    store,
		registry: titlesource.NewRegistry(cfg, tmdbClient, opts.HTTPClient, logger),
		metrics:  opts.Metrics,
		logger:   logging.NewComponentLogger(logger, "runner"),
		lock:     flock.New(cfg.LockPath()),
		resolver: resolver,
	}
	r.engine = ingest.NewEngine(store, provider, resolver, ingest.Options{
		Policy:         ingest.PolicyFromConfig(cfg),
		RequestTimeout: cfg.RequestTimeout(),
		Recorder:       opts.Metrics,
		Logger:         logger,
	})
	// Metadata updates bypass the lookup cache so a long-lived server sees fresh data.
	r.updater = ingest.NewUpdater(store, metadata.New(tmdbClient, 0, logger), ingest.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	})
	r.refresher = refresh.New(store, resolver, refresh.Options{
		StaleAfter:      cfg.StaleAfter(),
		MaxLinks:        cfg.Refresh.MaxLinks,
		CheckpointEvery: cfg.Refresh.CheckpointEvery,
		RequestTimeout:  cfg.RequestTimeout(),
		Recorder:        opts.Metrics,
		Logger:          logger,
	})
	return r, nil
}

// Store exposes the catalog the runner writes to.
func (r *Runner) Store() *catalog.Store {
	return r.store
}

// Lists returns the candidate list names available for kind.
func (r *Runner) Lists(kind catalog.Kind) []string {
	return r.registry.Names(kind)
}

// SyncLists fetches the named candidate lists and adds up to count new items.
func (r *Runner) SyncLists(ctx context.Context, kind catalog.Kind, lists []string, count int) (ingest.Result, error) {
	if count <= 0 {
		return ingest.Result{}, services.Wrap(services.ErrValidation, "runner", "sync", "count must be positive", nil)
	}
	var result ingest.Result
	err := r.exclusive(ctx, "sync", func(ctx context.Context) error {
		ctx = services.WithList(ctx, strings.Join(lists, ","))
		titles, err := r.registry.Titles(ctx, kind, lists, count)
		if err != nil {
			return fmt.Errorf("fetch candidate titles: %w", err)
		}
		logging.WithContext(ctx, r.logger).Info("candidate titles fetched", logging.Int("titles", len(titles)))
		result, err = r.engine.SyncFromTitles(ctx, kind, titles, count)
		return err
	})
	return result, err
}

// SyncTitles adds up to count new items from an explicit title list.
func (r *Runner) SyncTitles(ctx context.Context, kind catalog.Kind, titles []string, count int) (ingest.Result, error) {
	var result ingest.Result
	err := r.exclusive(ctx, "sync", func(ctx context.Context) error {
		var err error
		result, err = r.engine.SyncFromTitles(ctx, kind, titles, count)
		return err
	})
	return result, err
}

// Refresh runs one stale link refresh pass.
func (r *Runner) Refresh(ctx context.Context) (refresh.Result, error) {
	var result refresh.Result
	err := r.exclusive(ctx, "refresh", func(ctx context.Context) error {
		var err error
		result, err = r.refresher.RefreshStaleLinks(ctx)
		return err
	})
	return result, err
}

// UpdateMetadata re-fetches metadata for every catalogued item.
func (r *Runner) UpdateMetadata(ctx context.Context) (ingest.UpdateResult, error) {
	var result ingest.UpdateResult
	err := r.exclusive(ctx, "update-metadata", func(ctx context.Context) error {
		var err error
		result, err = r.updater.UpdateMetadata(ctx)
		return err
	})
	return result, err
}

// FoundLink is one file an ad-hoc lookup would pick.
type FoundLink struct {
	FileID  string `json:"file_id"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Quality string `json:"quality"`
}

// FindLinks searches for files matching q without touching the catalog.
// Files already linked to catalog items are not excluded. The result is
// empty, not nil, when nothing matches.
func (r *Runner) FindLinks(ctx context.Context, q linkmatch.Query) ([]FoundLink, error) {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return nil, services.Wrap(services.ErrValidation, "runner", "find links", "title is required", nil)
	}
	if err := q.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "runner", "find links", err.Error(), err)
	}
	candidates, err := r.resolver.FindLinks(ctx, q, linkmatch.NewClaimSet())
	if err != nil {
		return nil, fmt.Errorf("find links for %q: %w", q.Title, err)
	}
	links := make([]FoundLink, 0, len(candidates))
	for _, c := range candidates {
		links = append(links, FoundLink{FileID: c.ID, Name: c.Name, Size: c.Size, Quality: linkmatch.QualityLabel(c.Size)})
	}
	return links, nil
}

// Import replaces the catalog with a backup. It takes the run lock so a
// restore never interleaves with a sync or refresh.
func (r *Runner) Import(ctx context.Context, backup *catalog.Backup) error {
	return r.exclusive(ctx, "import", func(ctx context.Context) error {
		return r.store.Import(ctx, backup)
	})
}

// exclusive runs fn under the in-process guard and the cross-process file
// lock, tagging the context with a fresh run id.
func (r *Runner) exclusive(ctx context.Context, operation string, fn func(context.Context) error) error {
	if !r.running.TryLock() {
		return ErrRunInProgress
	}
	defer r.running.Unlock()

	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrRunInProgress
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started", logging.String("operation", operation))

	started := time.Now()
	err = fn(ctx)
	elapsed := time.Since(started)
	r.metrics.RunFinished(operation, err, elapsed)
	if err != nil {
		logger.Error("run failed", logging.String("operation", operation), logging.Error(err))
		return err
	}
	logger.Info("run finished", logging.String("operation", operation), logging.Duration("elapsed", elapsed))
	return nil
}
