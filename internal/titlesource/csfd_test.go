package titlesource_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mycinema/internal/services"
	"mycinema/internal/titlesource"
)

func chartPage(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="box-content">`)
	for i, title := range titles {
		fmt.Fprintf(&b, `<article><h3><a href="/film/%d/" class="film-title-name" title="%s">%s</a></h3></article>`, i, title, title)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func numbered(prefix string, from, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = prefix + strconv.Itoa(from+i)
	}
	return out
}

func TestParseTitles(t *testing.T) {
	html := `<a class="film-title-name" title=" Pelíšky ">Pelíšky</a>
<a class="film-title-name" title="">empty</a>
<a class="other" title="Ignored">x</a>
<a class="film-title-name" title="Kolja">Kolja</a>`
	got, err := titlesource.ParseTitles(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseTitles failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Pelíšky", "Kolja"}, got); diff != "" {
		t.Fatalf("unexpected titles (-want +got):\n%s", diff)
	}
}

func TestGeneralRankingPaginatesByFrom(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.RawQuery)
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent")
		}
		switch r.URL.Query().Get("from") {
		case "":
			_, _ = w.Write([]byte(chartPage(numbered("film ", 0, 100)...)))
		case "100":
			_, _ = w.Write([]byte(chartPage(numbered("film ", 100, 100)...)))
		case "200":
			_, _ = w.Write([]byte(chartPage(numbered("film ", 200, 30)...)))
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	t.Cleanup(server.Close)

	scraper := titlesource.NewScraper(titlesource.ScraperOptions{BaseURL: server.URL})
	got, err := scraper.GeneralRanking(context.Background(), "/zebricky/filmy/nejlepsi/")
	if err != nil {
		t.Fatalf("GeneralRanking failed: %v", err)
	}
	if len(got) != 230 || got[0] != "film 0" || got[229] != "film 229" {
		t.Fatalf("unexpected titles: %d first=%q", len(got), got[0])
	}
	if diff := cmp.Diff([]string{"", "from=100", "from=200"}, requested); diff != "" {
		t.Fatalf("unexpected requests (-want +got):\n%s", diff)
	}
}

func TestGeneralRankingHonoursMaxItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from, _ := strconv.Atoi(r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(chartPage(numbered("film ", from, 100)...)))
	}))
	t.Cleanup(server.Close)

	scraper := titlesource.NewScraper(titlesource.ScraperOptions{BaseURL: server.URL, MaxItems: 150})
	got, err := scraper.GeneralRanking(context.Background(), "/chart/")
	if err != nil {
		t.Fatalf("GeneralRanking failed: %v", err)
	}
	if len(got) != 150 {
		t.Fatalf("expected 150 titles, got %d", len(got))
	}
}

func TestFilteredRankingStopsOnEmptyPage(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if r.URL.Query().Get("filter") != "abc" {
			t.Errorf("filter lost: %q", r.URL.RawQuery)
		}
		switch page {
		case "":
			_, _ = w.Write([]byte(chartPage("A", "B")))
		case "2":
			_, _ = w.Write([]byte(chartPage("B", "C")))
		default:
			_, _ = w.Write([]byte(chartPage()))
		}
	}))
	t.Cleanup(server.Close)

	scraper := titlesource.NewScraper(titlesource.ScraperOptions{BaseURL: server.URL})
	got, err := scraper.FilteredRanking(context.Background(), "/zebricky/vlastni-vyber/?filter=abc")
	if err != nil {
		t.Fatalf("FilteredRanking failed: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, got); diff != "" {
		t.Fatalf("unexpected titles (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "2", "3"}, pages); diff != "" {
		t.Fatalf("unexpected pages (-want +got):\n%s", diff)
	}
}

func TestFirstPageFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	scraper := titlesource.NewScraper(titlesource.ScraperOptions{BaseURL: server.URL})
	if _, err := scraper.FilteredRanking(context.Background(), "/x/?filter=1"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
