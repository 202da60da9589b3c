package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"mycinema/internal/catalog"
	"mycinema/internal/config"
)

var japaneseScript = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}]`)

// Policy rejects content the catalog should never hold.
type Policy struct {
	// ExcludedGenres are matched case-insensitively as substrings of each genre.
	ExcludedGenres []string
	// BlockJapaneseScript rejects titles written in Hiragana, Katakana or Han.
	BlockJapaneseScript bool
	// MaxEpisodes caps the size of a show. Zero disables the cap.
	MaxEpisodes int
}

// PolicyFromConfig builds the policy configured in the sync section.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{
		ExcludedGenres:      append([]string(nil), cfg.Sync.ExcludedGenres...),
		BlockJapaneseScript: cfg.Sync.BlockJapaneseScript,
		MaxEpisodes:         cfg.Sync.MaxEpisodes,
	}
}

// Evaluate returns the rejection reason for item, or "" when it is acceptable.
func (p Policy) Evaluate(item *catalog.Item) string {
	if item == nil {
		return "missing metadata"
	}
	for _, genre := range item.Genres {
		lowered := strings.ToLower(genre)
		for _, excluded := range p.ExcludedGenres {
			excluded = strings.ToLower(strings.TrimSpace(excluded))
			if excluded != "" && strings.Contains(lowered, excluded) {
				return fmt.Sprintf("excluded genre %q", genre)
			}
		}
	}
	if p.BlockJapaneseScript && japaneseScript.MatchString(item.Title) {
		return "japanese script in title"
	}
	if item.Kind == catalog.KindShow {
		episodes := item.EpisodeCount()
		if episodes == 0 {
			return "no episodes"
		}
		if p.MaxEpisodes > 0 && episodes > p.MaxEpisodes {
			return fmt.Sprintf("too many episodes (%d > %d)", episodes, p.MaxEpisodes)
		}
	}
	return ""
}
