package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func encodeGenres(genres []string) (any, error) {
	if len(genres) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(genres)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeGenres(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw.String), &genres); err != nil {
		return nil
	}
	return genres
}

const itemColumns = "i.id, i.kind, i.external_id, i.title, i.normalized_title, i.year, i.overview, i.poster_path, i.vote_average, i.runtime, i.genres_json, i.last_link_check, i.created_at, i.updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		kind         string
		externalID   sql.NullInt64
		title        string
		normalized   string
		year         sql.NullInt64
		overview     sql.NullString
		posterPath   sql.NullString
		voteAverage  sql.NullFloat64
		runtime      sql.NullInt64
		genres       sql.NullString
		lastCheckRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&kind,
		&externalID,
		&title,
		&normalized,
		&year,
		&overview,
		&posterPath,
		&voteAverage,
		&runtime,
		&genres,
		&lastCheckRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Kind:            Kind(kind),
		ExternalID:      externalID.Int64,
		Title:           title,
		NormalizedTitle: normalized,
		Year:            int(year.Int64),
		Overview:        overview.String,
		PosterPath:      posterPath.String,
		VoteAverage:     voteAverage.Float64,
		Runtime:         int(runtime.Int64),
		Genres:          decodeGenres(genres),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastCheckRaw.Valid {
		if checked, err := parseTimeString(lastCheckRaw.String); err == nil {
			item.LastLinkCheck = &checked
		}
	}
	return item, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
