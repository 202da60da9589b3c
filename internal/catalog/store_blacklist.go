package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mycinema/internal/textutil"
)

func insertBlacklist(ctx context.Context, tx execer, entry BlacklistEntry, now time.Time) error {
	normalized := entry.NormalizedTitle
	if normalized == "" {
		normalized = textutil.Normalize(entry.Title)
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = now
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO blacklist (title, normalized_title, kind, reason, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		entry.Title, normalized, string(entry.Kind), nullableString(entry.Reason), formatTime(created),
	); err != nil {
		return fmt.Errorf("insert blacklist %q: %w", entry.Title, err)
	}
	return nil
}

// Blacklist lists blacklist entries, newest first. An empty kind lists both kinds.
func (s *Store) Blacklist(ctx context.Context, kind Kind) ([]BlacklistEntry, error) {
	query := "SELECT id, title, normalized_title, kind, reason, created_at FROM blacklist"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC, id DESC"

	var entries []BlacklistEntry
	err := scanEach(ensureContext(ctx), s.db, query, args, func(rows *sql.Rows) error {
		var (
			entry      BlacklistEntry
			kindRaw    string
			reason     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.NormalizedTitle, &kindRaw, &reason, &createdRaw); err != nil {
			return err
		}
		entry.Kind = Kind(kindRaw)
		entry.Reason = reason.String
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, storeErr("list blacklist", err)
	}
	return entries, nil
}

// RemoveBlacklist deletes the entry matching title for kind. The title is
// normalized first, so any spelling that normalizes the same matches.
func (s *Store) RemoveBlacklist(ctx context.Context, kind Kind, title string) (bool, error) {
	normalized := textutil.Normalize(strings.TrimSpace(title))
	if normalized == "" {
		return false, nil
	}
	res, err := s.execWithRetry(ctx, "DELETE FROM blacklist WHERE kind = ? AND normalized_title = ?", string(kind), normalized)
	if err != nil {
		return false, storeErr("remove blacklist", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("remove blacklist", err)
	}
	return affected > 0, nil
}
