package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mycinema/internal/catalog"
	"mycinema/internal/logging"
	"mycinema/internal/services"
)

// MetadataStore is the slice of the catalog a metadata update reads and writes.
type MetadataStore interface {
	Items(ctx context.Context, kind catalog.Kind) ([]*catalog.Item, error)
	MergeMetadata(ctx context.Context, updates []*catalog.Item) error
}

// UpdateResult summarizes one metadata update pass.
type UpdateResult struct {
	Updated       int      `json:"updated"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	UpdatedTitles []string `json:"updated_titles"`
	SkippedTitles []string `json:"skipped_titles"`
	FailedTitles  []string `json:"failed_titles"`
}

// Updater re-fetches metadata for every catalogued item.
type Updater struct {
	store    MetadataStore
	metadata MetadataProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewUpdater wires an updater. RequestTimeout and Logger are taken from opts.
func NewUpdater(store MetadataStore, metadata MetadataProvider, opts Options) *Updater {
	return &Updater{
		store:    store,
		metadata: metadata,
		timeout:  opts.RequestTimeout,
		logger:   logging.NewComponentLogger(opts.Logger, "metadata-update"),
	}
}

// UpdateMetadata looks every item up again by its title and merges the result
// in one transaction at the end. Items with no match, or whose match now
// points at a different work, are skipped. Lookup failures are counted per
// item. Cancellation and store failures return an error and write nothing.
func (u *Updater) UpdateMetadata(ctx context.Context) (UpdateResult, error) {
	logger := logging.WithContext(ctx, u.logger)
	started := time.Now()
	result := UpdateResult{UpdatedTitles: []string{}, SkippedTitles: []string{}, FailedTitles: []string{}}

	items, err := u.store.Items(ctx, "")
	if err != nil {
		return result, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("metadata update started", logging.Int("items", len(items)))

	updates := make([]*catalog.Item, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return UpdateResult{}, err
		}
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		itemLogger := logger.With(
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldTitle, item.Title),
		)

		fresh, err := u.lookup(ctx, item)
		switch {
		case ctx.Err() != nil:
			return UpdateResult{}, ctx.Err()
		case services.IsFatal(err):
			return UpdateResult{}, err
		case errors.Is(err, services.ErrNotFound):
			itemLogger.Info("no metadata match; keeping current metadata")
			result.Skipped++
			result.SkippedTitles = append(result.SkippedTitles, item.Title)
			continue
		case err != nil:
			itemLogger.Warn("metadata lookup failed", logging.Error(err))
			result.Failed++
			result.FailedTitles = append(result.FailedTitles, item.Title)
			continue
		}
		if item.ExternalID > 0 && fresh.ExternalID != item.ExternalID {
			itemLogger.Info("metadata match points at a different work; keeping current metadata",
				logging.Int64("external_id", item.ExternalID),
				logging.Int64("matched_external_id", fresh.ExternalID),
			)
			result.Skipped++
			result.SkippedTitles = append(result.SkippedTitles, item.Title)
			continue
		}

		fresh.ID, fresh.Kind = item.ID, item.Kind
		updates = append(updates, fresh)
		result.Updated++
		result.UpdatedTitles = append(result.UpdatedTitles, item.Title)
		itemLogger.Debug("metadata refreshed", logging.Int("seasons", len(fresh.Seasons)))
	}

	if err := u.store.MergeMetadata(ctx, updates); err != nil {
		logger.Error("metadata merge failed", logging.Error(err))
		return UpdateResult{}, err
	}
	logger.Info("metadata update finished",
		logging.Int("updated", result.Updated),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (u *Updater) lookup(ctx context.Context, item *catalog.Item) (*catalog.Item, error) {
	callCtx, cancel := context.WithCancel(ctx)
	if u.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, u.timeout)
	}
	defer cancel()
	fresh, err := u.metadata.LookupByTitle(callCtx, item.Kind, item.Title)
	if err == nil && fresh == nil {
		err = services.Wrap(services.ErrNotFound, "ingest", "update metadata", item.Title, nil)
	}
	return fresh, err
}
