package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mycinema/internal/services"
)

// DefaultHistoryLimit is how many entries RecentHistory returns by default.
const DefaultHistoryLimit = 20

// AddHistory records that itemID was watched at the given time.
func (s *Store) AddHistory(ctx context.Context, itemID int64, watchedAt time.Time) (*HistoryEntry, error) {
	ctx = ensureContext(ctx)
	if watchedAt.IsZero() {
		watchedAt = time.Now()
	}
	var (
		kind  string
		title string
	)
	err := s.db.QueryRowContext(ctx, "SELECT kind, title FROM items WHERE id = ?", itemID).Scan(&kind, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "add history", fmt.Sprintf("item %d", itemID), nil)
	}
	if err != nil {
		return nil, storeErr("add history", err)
	}
	res, err := s.execWithRetry(ctx, "INSERT INTO watch_history (item_id, watched_at) VALUES (?, ?)", itemID, formatTime(watchedAt))
	if err != nil {
		return nil, storeErr("add history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeErr("add history", err)
	}
	return &HistoryEntry{ID: id, ItemID: itemID, Kind: Kind(kind), Title: title, WatchedAt: watchedAt.UTC()}, nil
}

// RecentHistory returns the latest watch entries for kind, newest first.
func (s *Store) RecentHistory(ctx context.Context, kind Kind, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `SELECT h.id, h.item_id, i.kind, i.title, h.watched_at
        FROM watch_history h JOIN items i ON i.id = h.item_id`
	args := []any{}
	if kind != "" {
		query += " WHERE i.kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY h.watched_at DESC, h.id DESC LIMIT ?"
	args = append(args, limit)

	var entries []HistoryEntry
	err := scanEach(ensureContext(ctx), s.db, query, args, func(rows *sql.Rows) error {
		var (
			entry      HistoryEntry
			kindRaw    string
			watchedRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.ItemID, &kindRaw, &entry.Title, &watchedRaw); err != nil {
			return err
		}
		entry.Kind = Kind(kindRaw)
		if watched, err := parseTimeString(watchedRaw); err == nil {
			entry.WatchedAt = watched
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, storeErr("recent history", err)
	}
	return entries, nil
}
