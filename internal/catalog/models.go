package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes movies from shows.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

// ParseKind accepts the kind names used on the CLI and HTTP surfaces.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies", "film", "films":
		return KindMovie, nil
	case "show", "shows", "series", "tv":
		return KindShow, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// Link is a playable file reference. Exactly one of ItemID or EpisodeID is set.
type Link struct {
	ID        int64  `json:"-"`
	FileID    string `json:"file_id"`
	Quality   string `json:"quality"`
	Verified  bool   `json:"verified"`
	ItemID    int64  `json:"-"`
	EpisodeID int64  `json:"-"`
}

// Episode is a single show episode and its links.
type Episode struct {
	ID       int64  `json:"-"`
	SeasonID int64  `json:"-"`
	Number   int    `json:"number"`
	Title    string `json:"title,omitempty"`
	Runtime  int    `json:"runtime,omitempty"`
	Links    []Link `json:"links,omitempty"`
}

// Season groups episodes. Year is the season's first air year, zero when unknown.
type Season struct {
	ID       int64     `json:"-"`
	ItemID   int64     `json:"-"`
	Number   int       `json:"number"`
	Year     int       `json:"year,omitempty"`
	Episodes []Episode `json:"episodes,omitempty"`
}

// Item is a catalogued movie or show. ExternalID is the metadata provider id;
// zero means none.
type Item struct {
	ID              int64      `json:"id,omitempty"`
	Kind            Kind       `json:"kind"`
	ExternalID      int64      `json:"external_id,omitempty"`
	Title           string     `json:"title"`
	NormalizedTitle string     `json:"normalized_title,omitempty"`
	Year            int        `json:"year,omitempty"`
	Overview        string     `json:"overview,omitempty"`
	PosterPath      string     `json:"poster_path,omitempty"`
	VoteAverage     float64    `json:"vote_average,omitempty"`
	Runtime         int        `json:"runtime,omitempty"`
	Genres          []string   `json:"genres,omitempty"`
	LastLinkCheck   *time.Time `json:"last_link_check,omitempty"`
	Links           []Link     `json:"links,omitempty"`
	Seasons         []Season   `json:"seasons,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitzero"`
	UpdatedAt       time.Time  `json:"updated_at,omitzero"`
}

// AllLinks returns the item's own links followed by every episode link.
func (i *Item) AllLinks() []Link {
	if i == nil {
		return nil
	}
	out := append([]Link(nil), i.Links...)
	for _, season := range i.Seasons {
		for _, episode := range season.Episodes {
			out = append(out, episode.Links...)
		}
	}
	return out
}

// HasVerifiedLink reports whether any link on the item or its episodes was
// attached by a human.
func (i *Item) HasVerifiedLink() bool {
	for _, link := range i.AllLinks() {
		if link.Verified {
			return true
		}
	}
	return false
}

// EpisodeCount totals episodes across seasons.
func (i *Item) EpisodeCount() int {
	if i == nil {
		return 0
	}
	total := 0
	for _, season := range i.Seasons {
		total += len(season.Episodes)
	}
	return total
}

// NeedsRefresh reports whether the refresher should re-resolve the item's
// links: it holds no verified link and it has no links, was never checked,
// or was last checked before cutoff.
func (i *Item) NeedsRefresh(cutoff time.Time) bool {
	if i == nil || i.HasVerifiedLink() {
		return false
	}
	if len(i.AllLinks()) == 0 || i.LastLinkCheck == nil {
		return true
	}
	return i.LastLinkCheck.Before(cutoff)
}

// BlacklistEntry permanently rejects a title for one media kind.
type BlacklistEntry struct {
	ID              int64     `json:"-"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"normalized_title"`
	Kind            Kind      `json:"kind"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryEntry records that an item was watched.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	WatchedAt time.Time `json:"watched_at"`
}
