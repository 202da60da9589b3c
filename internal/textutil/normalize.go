package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	subtitlePattern     = regexp.MustCompile(`\s*[:\-—/].+$`)
	trailingYearPattern = regexp.MustCompile(`\s*\d{4}\s*$`)
	trailingZPattern    = regexp.MustCompile(`\s+z\s*$`)
	trailingRomanII     = regexp.MustCompile(`\s+ii+\s*$`)
	trailingNumeral     = regexp.MustCompile(`\s*\d+$`)
)

// RemoveDiacritics decomposes s and drops combining marks, so "Pelíšky"
// becomes "Pelisky". Letters without a decomposition are kept as-is.
func RemoveDiacritics(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize reduces a title to its deduplication key. The steps run in a fixed
// order: diacritics and case folding, subtitle removal from the first
// separator, trailing year removal, trailing sequel markers (lone "z", "ii"
// runs, bare numerals), and finally removal of all punctuation and whitespace.
//
// Sequel numbering is discarded deliberately: "Rocky 2" and "Rocky" share a key.
func Normalize(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}

	s := strings.ToLower(RemoveDiacritics(title))
	s = subtitlePattern.ReplaceAllString(s, "")
	s = trailingYearPattern.ReplaceAllString(s, "")
	s = trailingZPattern.ReplaceAllString(s, "")
	s = trailingRomanII.ReplaceAllString(s, "")
	s = trailingNumeral.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
