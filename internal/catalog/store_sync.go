package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Snapshot is the dedup state a sync run preloads. Titles and external ids are
// scoped to one kind; file ids are global.
type Snapshot struct {
	NormalizedTitles map[string]struct{}
	ExternalIDs      map[int64]struct{}
	Blacklisted      map[string]struct{}
	FileIDs          []string
}

// Snapshot reads the dedup sets for kind.
func (s *Store) Snapshot(ctx context.Context, kind Kind) (*Snapshot, error) {
	ctx = ensureContext(ctx)
	snap := &Snapshot{
		NormalizedTitles: make(map[string]struct{}),
		ExternalIDs:      make(map[int64]struct{}),
		Blacklisted:      make(map[string]struct{}),
	}

	if err := scanEach(ctx, s.db, "SELECT normalized_title, COALESCE(external_id, 0) FROM items WHERE kind = ?", []any{string(kind)},
		func(rows *sql.Rows) error {
			var (
				normalized string
				externalID int64
			)
			if err := rows.Scan(&normalized, &externalID); err != nil {
				return err
			}
			if normalized != "" {
				snap.NormalizedTitles[normalized] = struct{}{}
			}
			if externalID != 0 {
				snap.ExternalIDs[externalID] = struct{}{}
			}
			return nil
		}); err != nil {
		return nil, storeErr("snapshot items", err)
	}

	if err := scanEach(ctx, s.db, "SELECT normalized_title FROM blacklist WHERE kind = ?", []any{string(kind)},
		func(rows *sql.Rows) error {
			var normalized string
			if err := rows.Scan(&normalized); err != nil {
				return err
			}
			snap.Blacklisted[normalized] = struct{}{}
			return nil
		}); err != nil {
		return nil, storeErr("snapshot blacklist", err)
	}

	fileIDs, err := s.FileIDs(ctx)
	if err != nil {
		return nil, err
	}
	snap.FileIDs = fileIDs
	return snap, nil
}

// FileIDs returns every file id attached anywhere in the catalog.
func (s *Store) FileIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := scanEach(ensureContext(ctx), s.db, "SELECT file_id FROM links", nil, func(rows *sql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	}); err != nil {
		return nil, storeErr("file ids", err)
	}
	return ids, nil
}

// CommitSync writes every item and blacklist entry a sync run staged, in one
// transaction. A title already blacklisted for its kind is left as it is.
func (s *Store) CommitSync(ctx context.Context, items []*Item, blacklist []BlacklistEntry) error {
	if len(items) == 0 && len(blacklist) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if err := insertItem(ctx, tx, item, now); err != nil {
				return err
			}
		}
		for _, entry := range blacklist {
			if err := insertBlacklist(ctx, tx, entry, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("commit sync", fmt.Errorf("%d items, %d blacklist entries: %w", len(items), len(blacklist), err))
	}
	return nil
}

func scanEach(ctx context.Context, q querier, query string, args []any, fn func(rows *sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		if err := fn(rows); err != nil {
			rows.Close()
			return err
		}
	}
	return closeRows(rows)
}
