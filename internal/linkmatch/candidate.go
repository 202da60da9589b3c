package linkmatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidQuery is returned when exactly one of season and episode is set.
var ErrInvalidQuery = errors.New("invalid link query")

// Candidate is one file returned by the search backend.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Query describes the work a link is wanted for. Season and Episode are both
// zero for movies and both positive for a single episode of a show.
type Query struct {
	Title   string
	Year    int
	Season  int
	Episode int
}

// IsSeries reports whether the query targets an episode.
func (q Query) IsSeries() bool {
	return q.Season > 0 && q.Episode > 0
}

// Validate rejects half-specified episode queries.
func (q Query) Validate() error {
	if (q.Season > 0) != (q.Episode > 0) {
		return fmt.Errorf("%w: season %d episode %d", ErrInvalidQuery, q.Season, q.Episode)
	}
	if q.Season < 0 || q.Episode < 0 {
		return fmt.Errorf("%w: negative season or episode", ErrInvalidQuery)
	}
	return nil
}

// SearchText is the free-text query sent to the search backend.
func (q Query) SearchText() string {
	text := strings.TrimSpace(q.Title)
	if q.Year > 0 {
		text += " " + strconv.Itoa(q.Year)
	}
	return text
}

// EpisodeToken renders the canonical sNNeMM marker.
func (q Query) EpisodeToken() string {
	return fmt.Sprintf("s%02de%02d", q.Season, q.Episode)
}

func (q Query) episodeMarkers() []string {
	return []string{
		q.EpisodeToken(),
		fmt.Sprintf("%dx%02d", q.Season, q.Episode),
		fmt.Sprintf("%02dx%02d", q.Season, q.Episode),
	}
}
