package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mycinema/internal/catalog"
	"mycinema/internal/linkmatch"
	"mycinema/internal/logging"
	"mycinema/internal/services"
	"mycinema/internal/textutil"
)

const reasonNoLinks = "no links found"

// Title outcomes reported to a Recorder.
const (
	OutcomeAdded   = "added"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// MetadataProvider resolves a free-form title to canonical metadata. A miss
// is reported as services.ErrNotFound.
type MetadataProvider interface {
	LookupByTitle(ctx context.Context, kind catalog.Kind, title string) (*catalog.Item, error)
}

// LinkResolver finds playable files for a query, skipping and extending claimed.
type LinkResolver interface {
	FindLinks(ctx context.Context, q linkmatch.Query, claimed linkmatch.ClaimSet) ([]linkmatch.Candidate, error)
}

// Store is the slice of the catalog a sync run reads and writes.
type Store interface {
	Snapshot(ctx context.Context, kind catalog.Kind) (*catalog.Snapshot, error)
	CommitSync(ctx context.Context, items []*catalog.Item, blacklist []catalog.BlacklistEntry) error
}

// Recorder observes per-title outcomes.
type Recorder interface {
	TitleProcessed(kind, outcome string)
}

// Result lists the titles of one run by outcome. Added and skipped-by-id
// titles use the canonical title; everything else uses the input title.
type Result struct {
	Kind    catalog.Kind      `json:"kind"`
	Added   []string          `json:"added"`
	Skipped []string          `json:"skipped"`
	Failed  []string          `json:"failed"`
	Reasons map[string]string `json:"reasons,omitempty"`
}

// Options tune an Engine.
type Options struct {
	Policy Policy
	// RequestTimeout bounds every metadata lookup and link search. Zero
	// leaves the caller's context in charge.
	RequestTimeout time.Duration
	Recorder       Recorder
	Logger         *slog.Logger
}

// Engine runs catalog sync passes.
type Engine struct {
	store    Store
	metadata MetadataProvider
	links    LinkResolver
	policy   Policy
	timeout  time.Duration
	recorder Recorder
	logger   *slog.Logger
}

// NewEngine wires an engine to its collaborators.
func NewEngine(store Store, metadata MetadataProvider, links LinkResolver, opts Options) *Engine {
	return &Engine{
		store:    store,
		metadata: metadata,
		links:    links,
		policy:   opts.Policy,
		timeout:  opts.RequestTimeout,
		recorder: opts.Recorder,
		logger:   logging.NewComponentLogger(opts.Logger, "ingest"),
	}
}

// runContext is the state one sync pass threads through every title.
type runContext struct {
	kind        catalog.Kind
	existing    map[string]struct{}
	externalIDs map[int64]struct{}
	blacklisted map[string]struct{}
	claimed     linkmatch.ClaimSet
	staged      []*catalog.Item
	blacklist   []catalog.BlacklistEntry
	result      Result
}

func newRunContext(kind catalog.Kind, snap *catalog.Snapshot) *runContext {
	rc := &runContext{
		kind:        kind,
		existing:    make(map[string]struct{}, len(snap.NormalizedTitles)),
		externalIDs: make(map[int64]struct{}, len(snap.ExternalIDs)),
		blacklisted: make(map[string]struct{}, len(snap.Blacklisted)),
		claimed:     linkmatch.NewClaimSet(snap.FileIDs...),
		result: Result{
			Kind:    kind,
			Added:   []string{},
			Skipped: []string{},
			Failed:  []string{},
			Reasons: make(map[string]string),
		},
	}
	for k := range snap.NormalizedTitles {
		rc.existing[k] = struct{}{}
	}
	for k := range snap.ExternalIDs {
		rc.externalIDs[k] = struct{}{}
	}
	for k := range snap.Blacklisted {
		rc.blacklisted[k] = struct{}{}
	}
	return rc
}

// SyncFromTitles adds up to targetCount new items of kind from titles. The
// pass stops as soon as targetCount items were added. Per-title problems are
// reported in the Result; only a store failure or cancellation returns an
// error, in which case nothing was written.
func (e *Engine) SyncFromTitles(ctx context.Context, kind catalog.Kind, titles []string, targetCount int) (Result, error) {
	if kind != catalog.KindMovie && kind != catalog.KindShow {
		return Result{}, services.Wrap(services.ErrValidation, "ingest", "sync", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	if targetCount <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "ingest", "sync", "target count must be positive", nil)
	}
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldKind, string(kind)))
	started := time.Now()

	snap, err := e.store.Snapshot(ctx, kind)
	if err != nil {
		return Result{}, fmt.Errorf("load catalog snapshot: %w", err)
	}
	rc := newRunContext(kind, snap)
	logger.Info("sync started",
		logging.Int("candidates", len(titles)),
		logging.Int("target", targetCount),
		logging.Int("existing", len(rc.existing)),
		logging.Int("blacklisted", len(rc.blacklisted)),
		logging.Int("claimed_files", len(rc.claimed)),
	)

	for _, title := range titles {
		if len(rc.result.Added) >= targetCount {
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if strings.TrimSpace(title) == "" {
			continue
		}
		if err := e.processTitle(ctx, logger, rc, title); err != nil {
			return Result{}, err
		}
	}

	if err := e.store.CommitSync(ctx, rc.staged, rc.blacklist); err != nil {
		logger.Error("sync commit failed", logging.Error(err))
		return Result{}, err
	}
	logger.Info("sync finished",
		logging.Int("added", len(rc.result.Added)),
		logging.Int("skipped", len(rc.result.Skipped)),
		logging.Int("failed", len(rc.result.Failed)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return rc.result, nil
}

// processTitle applies the per-title protocol. A returned error aborts the run.
func (e *Engine) processTitle(ctx context.Context, logger *slog.Logger, rc *runContext, title string) error {
	normalized := textutil.Normalize(title)
	logger = logger.With(logging.String(logging.FieldTitle, title))

	if _, ok := rc.existing[normalized]; ok {
		e.skip(logger, rc, title, "title already in catalog")
		return nil
	}
	if _, ok := rc.blacklisted[normalized]; ok {
		e.fail(logger, rc, title, "blacklisted")
		return nil
	}

	item, err := e.lookup(ctx, rc.kind, title)
	switch {
	case services.IsFatal(err):
		return err
	case errors.Is(err, services.ErrNotFound):
		e.drop(logger, rc, "no metadata match")
		return nil
	case err != nil:
		e.fail(logger, rc, title, services.Reason(err))
		return nil
	case item == nil || item.ExternalID <= 0 || strings.TrimSpace(item.Title) == "":
		e.drop(logger, rc, "metadata without external id")
		return nil
	}
	item.Kind = rc.kind
	logger = logger.With(logging.Int64("external_id", item.ExternalID))

	if _, ok := rc.externalIDs[item.ExternalID]; ok {
		e.skip(logger, rc, item.Title, "external id already in catalog")
		return nil
	}

	reason := e.policy.Evaluate(item)
	if reason == "" {
		found, err := e.attachLinks(ctx, rc, item)
		switch {
		case services.IsFatal(err):
			return err
		case err != nil:
			e.fail(logger, rc, title, services.Reason(err))
			return nil
		case found == 0:
			reason = reasonNoLinks
		default:
			e.add(logger, rc, title, item, found)
			return nil
		}
	}

	rc.blacklist = append(rc.blacklist, catalog.BlacklistEntry{
		Title:           title,
		NormalizedTitle: normalized,
		Kind:            rc.kind,
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	})
	rc.blacklisted[normalized] = struct{}{}
	e.fail(logger, rc, title, reason)
	return nil
}

func (e *Engine) lookup(ctx context.Context, kind catalog.Kind, title string) (*catalog.Item, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	return e.metadata.LookupByTitle(callCtx, kind, title)
}

// attachLinks resolves links for the movie or for every episode of the show
// and reports how many were attached. On error every file claimed for item
// is released again.
func (e *Engine) attachLinks(ctx context.Context, rc *runContext, item *catalog.Item) (int, error) {
	var taken []string
	resolve := func(q linkmatch.Query) ([]catalog.Link, error) {
		callCtx, cancel := e.callContext(ctx)
		defer cancel()
		selected, err := e.links.FindLinks(callCtx, q, rc.claimed)
		if err != nil {
			return nil, err
		}
		links := make([]catalog.Link, 0, len(selected))
		for _, c := range selected {
			taken = append(taken, c.ID)
			links = append(links, catalog.Link{FileID: c.ID, Quality: linkmatch.QualityLabel(c.Size)})
		}
		return links, nil
	}
	release := func() {
		for _, id := range taken {
			rc.claimed.Release(id)
		}
	}

	if item.Kind == catalog.KindMovie {
		links, err := resolve(linkmatch.Query{Title: item.Title, Year: item.Year})
		if err != nil {
			release()
			return 0, err
		}
		item.Links = links
		return len(links), nil
	}

	found := 0
	for si := range item.Seasons {
		season := &item.Seasons[si]
		// Specials carry no sNNeMM marker the matcher could use.
		if season.Number <= 0 {
			continue
		}
		year := season.Year
		if year == 0 {
			year = item.Year
		}
		for ei := range season.Episodes {
			episode := &season.Episodes[ei]
			links, err := resolve(linkmatch.Query{
				Title:   item.Title,
				Year:    year,
				Season:  season.Number,
				Episode: episode.Number,
			})
			if err != nil {
				release()
				return 0, fmt.Errorf("season %d episode %d: %w", season.Number, episode.Number, err)
			}
			episode.Links = links
			found += len(links)
		}
	}
	return found, nil
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) add(logger *slog.Logger, rc *runContext, input string, item *catalog.Item, links int) {
	item.NormalizedTitle = textutil.Normalize(item.Title)
	rc.staged = append(rc.staged, item)
	rc.existing[item.NormalizedTitle] = struct{}{}
	rc.existing[textutil.Normalize(input)] = struct{}{}
	rc.externalIDs[item.ExternalID] = struct{}{}
	rc.result.Added = append(rc.result.Added, item.Title)
	logger.Info("title added", logging.Args(append(logging.DecisionAttrs("sync", OutcomeAdded, ""),
		logging.String("canonical_title", item.Title),
		logging.Int("links", links))...)...)
	e.record(rc, OutcomeAdded)
}

func (e *Engine) skip(logger *slog.Logger, rc *runContext, title, reason string) {
	rc.result.Skipped = append(rc.result.Skipped, title)
	logger.Info("title skipped", logging.Args(logging.DecisionAttrs("dedupe", OutcomeSkipped, reason)...)...)
	e.record(rc, OutcomeSkipped)
}

func (e *Engine) fail(logger *slog.Logger, rc *runContext, title, reason string) {
	rc.result.Failed = append(rc.result.Failed, title)
	rc.result.Reasons[title] = reason
	attrs := logging.Args(logging.DecisionAttrs("sync", OutcomeFailed, reason)...)
	if strings.HasPrefix(reason, "transient") {
		logger.Warn("title failed", attrs...)
	} else {
		logger.Info("title failed", attrs...)
	}
	e.record(rc, OutcomeFailed)
}

func (e *Engine) drop(logger *slog.Logger, rc *runContext, reason string) {
	logger.Debug("title dropped", logging.Args(logging.DecisionAttrs("metadata", OutcomeDropped, reason)...)...)
	e.record(rc, OutcomeDropped)
}

func (e *Engine) record(rc *runContext, outcome string) {
	if e.recorder != nil {
		e.recorder.TitleProcessed(string(rc.kind), outcome)
	}
}
