package linkmatch_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mycinema/internal/linkmatch"
)

const gib = linkmatch.GiB

func ids(cands []linkmatch.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func TestMatchMovieFiltersExtensionAndRanksBySize(t *testing.T) {
	files := []linkmatch.Candidate{
		{ID: "B", Name: "Foo.2020.mp4", Size: 10 * gib},
		{ID: "C", Name: "Foo.txt", Size: 5 * gib},
		{ID: "A", Name: "Foo.2020.mkv", Size: 20 * gib},
	}
	got, err := linkmatch.Match(files, linkmatch.Query{Title: "Foo", Year: 2020})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, ids(got)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}
}

func TestMatchRequiresEveryKeywordIgnoringDiacritics(t *testing.T) {
	files := []linkmatch.Candidate{
		{ID: "full", Name: "Vesnicko.ma.strediskova.1985.CZ.mkv", Size: 4 * gib},
		{ID: "partial", Name: "Vesnicko.1985.mkv", Size: 8 * gib},
		{ID: "accented", Name: "Vesničko má středisková.avi", Size: 2 * gib},
	}
	got, err := linkmatch.Match(files, linkmatch.Query{Title: "Vesničko má středisková"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if diff := cmp.Diff([]string{"full", "accented"}, ids(got)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}
}

func TestMatchSplitsKeywordsOnColonAndHyphen(t *testing.T) {
	files := []linkmatch.Candidate{
		{ID: "dots", Name: "Spider.Man.No.Way.Home.mkv", Size: gib},
	}
	got, err := linkmatch.Match(files, linkmatch.Query{Title: "Spider-Man: No Way Home"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected hyphenated title to match dotted name, got %v", ids(got))
	}
}

func TestMatchSeriesRequiresEpisodeMarker(t *testing.T) {
	files := []linkmatch.Candidate{
		{ID: "wrong-ep", Name: "Show.S01E03.mkv", Size: 4 * gib},
		{ID: "alt", Name: "Show.1x02.mkv", Size: 2 * gib},
		{ID: "exact", Name: "Show.S01E02.mkv", Size: 3 * gib},
		{ID: "padded", Name: "Show_01x02_CZ.mp4", Size: 6 * gib},
	}
	got, err := linkmatch.Match(files, linkmatch.Query{Title: "Show", Season: 1, Episode: 2})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if diff := cmp.Diff([]string{"exact", "padded", "alt"}, ids(got)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}

	// The episode marker alone does not make a file playable.
	got, err = linkmatch.Match([]linkmatch.Candidate{
		{ID: "sidecar", Name: "Foo.S01E02.nfo", Size: 1 * gib},
	}, linkmatch.Query{Title: "Foo", Season: 1, Episode: 2})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected Foo.S01E02.nfo to be rejected, got %v", ids(got))
	}
}

func TestMatchSeriesPrefersYearThenSize(t *testing.T) {
	files := []linkmatch.Candidate{
		{ID: "big", Name: "Show.S02E05.1080p.mkv", Size: 9 * gib},
		{ID: "year", Name: "Show.2019.S02E05.mkv", Size: 1 * gib},
		{ID: "small", Name: "Show.S02E05.mkv", Size: 2 * gib},
	}
	got, err := linkmatch.Match(files, linkmatch.Query{Title: "Show", Year: 2019, Season: 2, Episode: 5})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if diff := cmp.Diff([]string{"year", "big", "small"}, ids(got)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestMatchEmptyInput(t *testing.T) {
	got, err := linkmatch.Match(nil, linkmatch.Query{Title: "Foo"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMatchRejectsHalfEpisodeQuery(t *testing.T) {
	_, err := linkmatch.Match([]linkmatch.Candidate{{ID: "x", Name: "Foo.mkv"}}, linkmatch.Query{Title: "Foo", Season: 1})
	if !errors.Is(err, linkmatch.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestMatchCustomExtensions(t *testing.T) {
	m := linkmatch.NewMatcher([]string{"webm"})
	got, err := m.Match([]linkmatch.Candidate{
		{ID: "mkv", Name: "Foo.mkv"},
		{ID: "webm", Name: "Foo.WEBM"},
	}, linkmatch.Query{Title: "Foo"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if diff := cmp.Diff([]string{"webm"}, ids(got)); diff != "" {
		t.Fatalf("unexpected matches (-want +got):\n%s", diff)
	}
}

func TestQuerySearchText(t *testing.T) {
	if got := (linkmatch.Query{Title: " Pelíšky ", Year: 1999}).SearchText(); got != "Pelíšky 1999" {
		t.Fatalf("unexpected search text %q", got)
	}
	if got := (linkmatch.Query{Title: "Pelíšky"}).SearchText(); got != "Pelíšky" {
		t.Fatalf("unexpected search text %q", got)
	}
}
