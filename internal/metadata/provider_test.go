package metadata_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mycinema/internal/catalog"
	"mycinema/internal/metadata"
	"mycinema/internal/services"
	"mycinema/internal/tmdb"
)

func newProvider(t *testing.T, handler http.Handler, ttl time.Duration) *metadata.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := tmdb.New("key", server.URL, "cs-CZ")
	if err != nil {
		t.Fatalf("tmdb.New failed: %v", err)
	}
	return metadata.New(client, ttl, nil)
}

func TestLookupMovie(t *testing.T) {
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"id":603,"title":"Matrix","release_date":"1999-03-30"},{"id":1,"title":"Other"}]}`))
	})
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":603,"title":"Matrix","release_date":"1999-03-30","runtime":136,"genres":[{"id":28,"name":"Akční"},{"id":878,"name":"Sci-Fi"}]}`))
	})
	provider := newProvider(t, mux, time.Minute)

	got, err := provider.LookupByTitle(context.Background(), catalog.KindMovie, "matrix")
	if err != nil {
		t.Fatalf("LookupByTitle failed: %v", err)
	}
	want := &catalog.Item{
		Kind:            catalog.KindMovie,
		ExternalID:      603,
		Title:           "Matrix",
		NormalizedTitle: "matrix",
		Year:            1999,
		Runtime:         136,
		Genres:          []string{"Akční", "Sci-Fi"},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected item (-want +got):\n%s", diff)
	}

	got.Title = "mutated"
	again, err := provider.LookupByTitle(context.Background(), catalog.KindMovie, "Matrix")
	if err != nil {
		t.Fatalf("cached LookupByTitle failed: %v", err)
	}
	if again.Title != "Matrix" {
		t.Fatalf("cache returned a shared item: %q", again.Title)
	}
	if searches.Load() != 1 {
		t.Fatalf("expected cached lookup, got %d searches", searches.Load())
	}
}

func TestLookupNotFoundIsCached(t *testing.T) {
	var searches atomic.Int32
	provider := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := provider.LookupByTitle(context.Background(), catalog.KindMovie, "Nothing"); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if searches.Load() != 1 {
		t.Fatalf("expected the miss to be cached, got %d searches", searches.Load())
	}
}

func TestLookupShowKeepsSeasonsWithEpisodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/tv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":10,"name":"Most!","first_air_date":"2019-01-07"}]}`))
	})
	mux.HandleFunc("/tv/10", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":10,"name":"Most!","genres":[{"id":35,"name":"Komedie"}],"seasons":[
			{"season_number":0,"air_date":""},
			{"season_number":1,"air_date":"2019-01-07"},
			{"season_number":2,"air_date":"2021-02-01"}]}`))
	})
	mux.HandleFunc("/tv/10/season/0", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"season_number":0,"episodes":[]}`))
	})
	mux.HandleFunc("/tv/10/season/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"season_number":1,"air_date":"2019-01-07","episodes":[{"episode_number":1,"name":"Pilot"},{"episode_number":2}]}`))
	})
	mux.HandleFunc("/tv/10/season/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"season_number":2,"episodes":[{"episode_number":1}]}`))
	})
	provider := newProvider(t, mux, 0)

	got, err := provider.LookupByTitle(context.Background(), catalog.KindShow, "Most")
	if err != nil {
		t.Fatalf("LookupByTitle failed: %v", err)
	}
	wantSeasons := []catalog.Season{
		{Number: 1, Year: 2019, Episodes: []catalog.Episode{{Number: 1, Title: "Pilot"}, {Number: 2}}},
		{Number: 2, Year: 2021, Episodes: []catalog.Episode{{Number: 1}}},
	}
	if diff := cmp.Diff(wantSeasons, got.Seasons, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected seasons (-want +got):\n%s", diff)
	}
	if got.Year != 2019 || got.EpisodeCount() != 3 {
		t.Fatalf("unexpected show: %#v", got)
	}
}

func TestLookupTransientErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	provider := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}), time.Minute)

	if _, err := provider.LookupByTitle(context.Background(), catalog.KindMovie, "Flaky"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if _, err := provider.LookupByTitle(context.Background(), catalog.KindMovie, "Flaky"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected second call to reach the server, got %v", err)
	}
}
