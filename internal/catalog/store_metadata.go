package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MergeMetadata writes freshly fetched metadata onto existing items in one
// transaction. Each update carries the id and kind of the item it replaces.
// Movies get their descriptive fields, year, runtime and rating replaced.
// Shows get overview, poster and genres replaced, and their seasons and
// episodes merged: unknown ones are inserted, known ones updated in place,
// and nothing is deleted. Links are never touched.
func (s *Store) MergeMetadata(ctx context.Context, updates []*Item) error {
	if len(updates) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, update := range updates {
			if err := mergeItem(ctx, tx, update, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("merge metadata", err)
	}
	return nil
}

func mergeItem(ctx context.Context, tx *sql.Tx, update *Item, now time.Time) error {
	genres, err := encodeGenres(update.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	if update.Kind == KindMovie {
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET overview = ?, poster_path = ?, year = ?, vote_average = ?,
                runtime = ?, genres_json = ?, updated_at = ?
             WHERE id = ?`,
			nullableString(update.Overview),
			nullableString(update.PosterPath),
			nullableInt(int64(update.Year)),
			update.VoteAverage,
			nullableInt(int64(update.Runtime)),
			genres,
			formatTime(now),
			update.ID,
		)
		if err != nil {
			return fmt.Errorf("update item %d: %w", update.ID, err)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE items SET overview = ?, poster_path = ?, genres_json = ?, updated_at = ? WHERE id = ?",
		nullableString(update.Overview),
		nullableString(update.PosterPath),
		genres,
		formatTime(now),
		update.ID,
	); err != nil {
		return fmt.Errorf("update item %d: %w", update.ID, err)
	}
	for _, season := range update.Seasons {
		seasonID, err := upsertSeason(ctx, tx, update.ID, season)
		if err != nil {
			return err
		}
		for _, episode := range season.Episodes {
			if err := upsertEpisode(ctx, tx, seasonID, episode); err != nil {
				return fmt.Errorf("season %d: %w", season.Number, err)
			}
		}
	}
	return nil
}

func upsertSeason(ctx context.Context, tx *sql.Tx, itemID int64, season Season) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM seasons WHERE item_id = ? AND number = ?", itemID, season.Number).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			"INSERT INTO seasons (item_id, number, year) VALUES (?, ?, ?)",
			itemID, season.Number, nullableInt(int64(season.Year)))
		if err != nil {
			return 0, fmt.Errorf("insert season %d of item %d: %w", season.Number, itemID, err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("find season %d of item %d: %w", season.Number, itemID, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE seasons SET year = ? WHERE id = ?", nullableInt(int64(season.Year)), id); err != nil {
		return 0, fmt.Errorf("update season %d of item %d: %w", season.Number, itemID, err)
	}
	return id, nil
}

func upsertEpisode(ctx context.Context, tx *sql.Tx, seasonID int64, episode Episode) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE episodes SET title = ?, runtime = ? WHERE season_id = ? AND number = ?",
		nullableString(episode.Title), nullableInt(int64(episode.Runtime)), seasonID, episode.Number)
	if err != nil {
		return fmt.Errorf("update episode %d: %w", episode.Number, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update episode %d: %w", episode.Number, err)
	} else if affected > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO episodes (season_id, number, title, runtime) VALUES (?, ?, ?, ?)",
		seasonID, episode.Number, nullableString(episode.Title), nullableInt(int64(episode.Runtime)),
	); err != nil {
		return fmt.Errorf("insert episode %d: %w", episode.Number, err)
	}
	return nil
}
