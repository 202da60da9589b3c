package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mycinema/internal/services"
	"mycinema/internal/textutil"
)

// itemFilter narrows loadItems. Zero values match everything.
type itemFilter struct {
	id   int64
	kind Kind
}

func (f itemFilter) where() (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if f.id > 0 {
		clauses = append(clauses, "i.id = ?")
		args = append(args, f.id)
	}
	if f.kind != "" {
		clauses = append(clauses, "i.kind = ?")
		args = append(args, string(f.kind))
	}
	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadItems assembles full items (seasons, episodes and links) with one query
// per table. Rows are fully drained before the next query runs.
func loadItems(ctx context.Context, q querier, filter itemFilter) ([]*Item, error) {
	where, args := filter.where()

	rows, err := q.QueryContext(ctx, "SELECT "+itemColumns+" FROM items i WHERE "+where+" ORDER BY i.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	var items []*Item
	byID := make(map[int64]*Item)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
		byID[item.ID] = item
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	rows, err = q.QueryContext(ctx,
		`SELECT s.id, s.item_id, s.number, s.year FROM seasons s
         JOIN items i ON i.id = s.item_id
         WHERE `+where+` ORDER BY s.item_id, s.number`, args...)
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	var seasons []Season
	for rows.Next() {
		var (
			season Season
			year   sql.NullInt64
		)
		if err := rows.Scan(&season.ID, &season.ItemID, &season.Number, &year); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan season: %w", err)
		}
		season.Year = int(year.Int64)
		seasons = append(seasons, season)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT e.id, e.season_id, e.number, e.title, e.runtime FROM episodes e
         JOIN seasons s ON s.id = e.season_id
         JOIN items i ON i.id = s.item_id
         WHERE `+where+` ORDER BY e.season_id, e.number`, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	var episodes []Episode
	for rows.Next() {
		var (
			episode Episode
			title   sql.NullString
			runtime sql.NullInt64
		)
		if err := rows.Scan(&episode.ID, &episode.SeasonID, &episode.Number, &title, &runtime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episode.Title = title.String
		episode.Runtime = int(runtime.Int64)
		episodes = append(episodes, episode)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT l.id, l.file_id, l.quality, l.verified, l.item_id, l.episode_id FROM links l
         LEFT JOIN episodes e ON e.id = l.episode_id
         LEFT JOIN seasons s ON s.id = e.season_id
         JOIN items i ON i.id = COALESCE(l.item_id, s.item_id)
         WHERE `+where+` ORDER BY l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	var links []Link
	for rows.Next() {
		var (
			link      Link
			quality   sql.NullString
			verified  int
			itemID    sql.NullInt64
			episodeID sql.NullInt64
		)
		if err := rows.Scan(&link.ID, &link.FileID, &quality, &verified, &itemID, &episodeID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan link: %w", err)
		}
		link.Quality = quality.String
		link.Verified = verified != 0
		link.ItemID = itemID.Int64
		link.EpisodeID = episodeID.Int64
		links = append(links, link)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	episodeLinks := make(map[int64][]Link)
	for _, link := range links {
		if link.EpisodeID != 0 {
			episodeLinks[link.EpisodeID] = append(episodeLinks[link.EpisodeID], link)
			continue
		}
		if item := byID[link.ItemID]; item != nil {
			item.Links = append(item.Links, link)
		}
	}
	seasonEpisodes := make(map[int64][]Episode)
	for _, episode := range episodes {
		episode.Links = episodeLinks[episode.ID]
		seasonEpisodes[episode.SeasonID] = append(seasonEpisodes[episode.SeasonID], episode)
	}
	for _, season := range seasons {
		season.Episodes = seasonEpisodes[season.ID]
		if item := byID[season.ItemID]; item != nil {
			item.Seasons = append(item.Seasons, season)
		}
	}
	return items, nil
}

func closeRows(rows *sql.Rows) error {
	iterErr := rows.Err()
	closeErr := rows.Close()
	if iterErr != nil {
		return fmt.Errorf("iterate rows: %w", iterErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}

// Items returns every item of the given kind, or of both kinds when kind is empty.
func (s *Store) Items(ctx context.Context, kind Kind) ([]*Item, error) {
	items, err := loadItems(ensureContext(ctx), s.db, itemFilter{kind: kind})
	if err != nil {
		return nil, storeErr("list items", err)
	}
	return items, nil
}

// GetItem loads one item with its full structure.
func (s *Store) GetItem(ctx context.Context, id int64) (*Item, error) {
	items, err := loadItems(ensureContext(ctx), s.db, itemFilter{id: id})
	if err != nil {
		return nil, storeErr("get item", err)
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get item", fmt.Sprintf("item %d", id), nil)
	}
	return items[0], nil
}

// Search returns items whose title contains query, ignoring case and diacritics.
func (s *Store) Search(ctx context.Context, kind Kind, query string) ([]*Item, error) {
	items, err := s.Items(ctx, kind)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(textutil.RemoveDiacritics(strings.TrimSpace(query)))
	if needle == "" {
		return items, nil
	}
	filtered := items[:0]
	for _, item := range items {
		if strings.Contains(strings.ToLower(textutil.RemoveDiacritics(item.Title)), needle) {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// DeleteItem removes an item; seasons, episodes, links and history cascade.
func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return false, storeErr("delete item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("delete item", err)
	}
	return affected > 0, nil
}

// SetLinks replaces every link of one owner with human-supplied file ids,
// all marked verified. episodeID selects an episode owner; zero targets the
// item itself.
func (s *Store) SetLinks(ctx context.Context, itemID, episodeID int64, links []Link) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if episodeID != 0 {
			var owner int64
			err := tx.QueryRowContext(ctx,
				`SELECT s.item_id FROM episodes e JOIN seasons s ON s.id = e.season_id WHERE e.id = ?`, episodeID,
			).Scan(&owner)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != itemID) {
				return services.Wrap(services.ErrNotFound, "catalog", "set links", fmt.Sprintf("episode %d of item %d", episodeID, itemID), nil)
			}
			if err != nil {
				return fmt.Errorf("lookup episode: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE episode_id = ?", episodeID); err != nil {
				return fmt.Errorf("clear episode links: %w", err)
			}
		} else {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM items WHERE id = ?", itemID).Scan(&exists); err != nil {
				return fmt.Errorf("lookup item: %w", err)
			}
			if exists == 0 {
				return services.Wrap(services.ErrNotFound, "catalog", "set links", fmt.Sprintf("item %d", itemID), nil)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE item_id = ?", itemID); err != nil {
				return fmt.Errorf("clear item links: %w", err)
			}
		}
		for _, link := range links {
			link.Verified = true
			if episodeID != 0 {
				link.ItemID, link.EpisodeID = 0, episodeID
			} else {
				link.ItemID, link.EpisodeID = itemID, 0
			}
			// A manual link takes the file id over from any automatic owner.
			if _, err := tx.ExecContext(ctx, "DELETE FROM links WHERE file_id = ? AND verified = 0", link.FileID); err != nil {
				return fmt.Errorf("release file id: %w", err)
			}
			if err := insertLink(ctx, tx, link, now, false); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, "UPDATE items SET updated_at = ? WHERE id = ?", formatTime(now), itemID)
		return err
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return err
		}
		return storeErr("set links", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertItem writes an item with its seasons, episodes and links and assigns
// the generated ids back onto item.
func insertItem(ctx context.Context, tx execer, item *Item, now time.Time) error {
	if item.NormalizedTitle == "" {
		item.NormalizedTitle = textutil.Normalize(item.Title)
	}
	genres, err := encodeGenres(item.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}
	created := item.CreatedAt
	if created.IsZero() {
		created = now
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (
            kind, external_id, title, normalized_title, year, overview, poster_path,
            vote_average, runtime, genres_json, last_link_check, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Kind),
		nullableInt(item.ExternalID),
		item.Title,
		item.NormalizedTitle,
		nullableInt(int64(item.Year)),
		nullableString(item.Overview),
		nullableString(item.PosterPath),
		item.VoteAverage,
		nullableInt(int64(item.Runtime)),
		genres,
		nullableTime(item.LastLinkCheck),
		formatTime(created),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert item %q: %w", item.Title, err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.CreatedAt, item.UpdatedAt = created.UTC(), now.UTC()

	for i := range item.Links {
		item.Links[i].ItemID, item.Links[i].EpisodeID = item.ID, 0
		if err := insertLink(ctx, tx, item.Links[i], now, false); err != nil {
			return err
		}
	}
	for si := range item.Seasons {
		season := &item.Seasons[si]
		res, err := tx.ExecContext(ctx,
			"INSERT INTO seasons (item_id, number, year) VALUES (?, ?, ?)",
			item.ID, season.Number, nullableInt(int64(season.Year)))
		if err != nil {
			return fmt.Errorf("insert season %d of %q: %w", season.Number, item.Title, err)
		}
		if season.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		season.ItemID = item.ID
		for ei := range season.Episodes {
			episode := &season.Episodes[ei]
			res, err := tx.ExecContext(ctx,
				"INSERT INTO episodes (season_id, number, title, runtime) VALUES (?, ?, ?, ?)",
				season.ID, episode.Number, nullableString(episode.Title), nullableInt(int64(episode.Runtime)))
			if err != nil {
				return fmt.Errorf("insert episode s%02de%02d of %q: %w", season.Number, episode.Number, item.Title, err)
			}
			if episode.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			episode.SeasonID = season.ID
			for li := range episode.Links {
				episode.Links[li].ItemID, episode.Links[li].EpisodeID = 0, episode.ID
				if err := insertLink(ctx, tx, episode.Links[li], now, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// insertLink writes one link. With skipTaken a file id already held elsewhere
// is silently left with its current owner.
func insertLink(ctx context.Context, tx execer, link Link, now time.Time, skipTaken bool) error {
	query := `INSERT INTO links (file_id, quality, verified, item_id, episode_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if skipTaken {
		query += " ON CONFLICT(file_id) DO NOTHING"
	}
	if _, err := tx.ExecContext(ctx, query,
		link.FileID,
		nullableString(link.Quality),
		boolToInt(link.Verified),
		nullableInt(link.ItemID),
		nullableInt(link.EpisodeID),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("insert link %s: %w", link.FileID, err)
	}
	return nil
}
