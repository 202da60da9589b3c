package linkmatch

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"mycinema/internal/textutil"
)

// DefaultExtensions are the playable container formats accepted by Match.
var DefaultExtensions = []string{".mkv", ".mp4", ".avi"}

var separatorReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")

// Matcher filters and ranks raw search results against a Query.
type Matcher struct {
	extensions []string
}

// NewMatcher builds a Matcher accepting the given extensions. An empty list
// falls back to DefaultExtensions.
func NewMatcher(extensions []string) Matcher {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return Matcher{extensions: exts}
}

// Match filters files with the default extensions. See Matcher.Match.
func Match(files []Candidate, q Query) ([]Candidate, error) {
	return NewMatcher(nil).Match(files, q)
}

// Match keeps files whose name contains every title keyword, carries the
// episode marker when q is an episode query, and has a playable extension.
// Episode results are ordered by exact sNNeMM marker, then year in the name,
// then size; movie results by size alone. Both orders are stable and descending.
func (m Matcher) Match(files []Candidate, q Query) ([]Candidate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []Candidate{}, nil
	}

	keywords := titleKeywords(q.Title)
	series := q.IsSeries()
	var markers []string
	if series {
		markers = q.episodeMarkers()
	}

	type ranked struct {
		file  Candidate
		exact bool
		year  bool
	}
	yearText := ""
	if q.Year > 0 {
		yearText = strconv.Itoa(q.Year)
	}

	kept := make([]ranked, 0, len(files))
	for _, file := range files {
		lowered := strings.ToLower(textutil.RemoveDiacritics(file.Name))
		if !containsAll(lowered, keywords) {
			continue
		}
		if !m.hasExtension(lowered) {
			continue
		}
		entry := ranked{file: file}
		if series {
			cleaned := separatorReplacer.Replace(lowered)
			if !containsAny(cleaned, markers) {
				continue
			}
			entry.exact = strings.Contains(cleaned, markers[0])
			entry.year = yearText != "" && strings.Contains(lowered, yearText)
		}
		kept = append(kept, entry)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if series {
			if a.exact != b.exact {
				return a.exact
			}
			if a.year != b.year {
				return a.year
			}
		}
		return a.file.Size > b.file.Size
	})

	out := make([]Candidate, len(kept))
	for i, entry := range kept {
		out[i] = entry.file
	}
	return out, nil
}

func (m Matcher) hasExtension(lowered string) bool {
	for _, ext := range m.extensions {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}

// titleKeywords splits the folded title on whitespace, colons and hyphens.
func titleKeywords(title string) []string {
	folded := strings.ToLower(textutil.RemoveDiacritics(title))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '-'
	})
}

func containsAll(s string, parts []string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}

func containsAny(s string, parts []string) bool {
	for _, part := range parts {
		if strings.Contains(s, part) {
			return true
		}
	}
	return false
}
