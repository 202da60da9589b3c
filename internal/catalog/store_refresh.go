package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RefreshUpdate carries the outcome of re-resolving one item's links.
// EpisodeLinks is keyed by episode id.
type RefreshUpdate struct {
	ItemID       int64
	CheckedAt    time.Time
	ItemLinks    []Link
	EpisodeLinks map[int64][]Link
}

// StaleItems returns the items whose automatic links are due for refresh:
// nothing on them is verified and they have no links, were never checked, or
// were last checked before cutoff.
func (s *Store) StaleItems(ctx context.Context, cutoff time.Time) ([]*Item, error) {
	items, err := s.Items(ctx, "")
	if err != nil {
		return nil, err
	}
	stale := make([]*Item, 0, len(items))
	for _, item := range items {
		if item.NeedsRefresh(cutoff) {
			stale = append(stale, item)
		}
	}
	return stale, nil
}

// ApplyRefresh persists a checkpoint of refreshed items in one transaction.
// Items that gained a verified link since they were selected are only
// stamped; their links are left alone.
func (s *Store) ApplyRefresh(ctx context.Context, updates []RefreshUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, update := range updates {
			if err := applyRefresh(ctx, tx, update, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("apply refresh", err)
	}
	return nil
}

func applyRefresh(ctx context.Context, tx *sql.Tx, update RefreshUpdate, now time.Time) error {
	checked := update.CheckedAt
	if checked.IsZero() {
		checked = now
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE items SET last_link_check = ?, updated_at = ? WHERE id = ?",
		formatTime(checked), formatTime(now), update.ItemID,
	); err != nil {
		return fmt.Errorf("stamp item %d: %w", update.ItemID, err)
	}

	var verified int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM links l
         LEFT JOIN episodes e ON e.id = l.episode_id
         LEFT JOIN seasons s ON s.id = e.season_id
         WHERE l.verified = 1 AND (l.item_id = ? OR s.item_id = ?)`,
		update.ItemID, update.ItemID,
	).Scan(&verified); err != nil {
		return fmt.Errorf("check verified links of item %d: %w", update.ItemID, err)
	}
	if verified > 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM links WHERE verified = 0 AND (
            item_id = ? OR episode_id IN (
                SELECT e.id FROM episodes e JOIN seasons s ON s.id = e.season_id WHERE s.item_id = ?
            )
        )`,
		update.ItemID, update.ItemID,
	); err != nil {
		return fmt.Errorf("clear links of item %d: %w", update.ItemID, err)
	}

	for _, link := range update.ItemLinks {
		link.ItemID, link.EpisodeID, link.Verified = update.ItemID, 0, false
		if err := insertLink(ctx, tx, link, now, true); err != nil {
			return err
		}
	}
	for episodeID, links := range update.EpisodeLinks {
		for _, link := range links {
			link.ItemID, link.EpisodeID, link.Verified = 0, episodeID, false
			if err := insertLink(ctx, tx, link, now, true); err != nil {
				return err
			}
		}
	}
	return nil
}
