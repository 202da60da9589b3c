package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mycinema/internal/catalog"
	"mycinema/internal/ingest"
	"mycinema/internal/services"
	"mycinema/internal/testsupport"
)

func TestUpdateMetadataMergesWithoutDroppingLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	show := &catalog.Item{
		Kind:       catalog.KindShow,
		Title:      "Serial",
		ExternalID: 5,
		Seasons: []catalog.Season{{
			Number: 1,
			Episodes: []catalog.Episode{{
				Number: 1,
				Links:  []catalog.Link{{FileID: "s1e1", Quality: "1.00 GB"}},
			}},
		}},
	}
	items := testsupport.AddItems(t, store,
		testsupport.Movie("Alfa", 1, "a1"),
		show,
		testsupport.Movie("Beta", 2, "b1"),
		testsupport.Movie("Gama", 3, "g1"),
		testsupport.Movie("Delta", 4, "d1"),
	)

	metadata := &fakeMetadata{
		entries: map[string]entry{
			"Alfa":   {externalID: 1, title: "Alfa", year: 2001, genres: []string{"Drama"}},
			"Serial": {externalID: 5, title: "Serial", year: 2010, seasons: []int{2, 3}},
			"Gama":   {externalID: 30, title: "Gama", year: 1950},
		},
		errs: map[string]error{
			"Delta": services.Wrap(services.ErrTransient, "fake", "lookup", "Delta", nil),
		},
	}
	updater := ingest.NewUpdater(store, metadata, ingest.Options{})

	result, err := updater.UpdateMetadata(context.Background())
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	want := ingest.UpdateResult{
		Updated:       2,
		Skipped:       2,
		Failed:        1,
		UpdatedTitles: []string{"Alfa", "Serial"},
		SkippedTitles: []string{"Beta", "Gama"},
		FailedTitles:  []string{"Delta"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}

	alfa, err := store.GetItem(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if alfa.Year != 2001 {
		t.Fatalf("expected year 2001, got %d", alfa.Year)
	}
	if diff := cmp.Diff([]string{"Drama"}, alfa.Genres); diff != "" {
		t.Fatalf("unexpected genres (-want +got):\n%s", diff)
	}
	if len(alfa.Links) != 1 || alfa.Links[0].FileID != "a1" {
		t.Fatalf("movie links changed: %+v", alfa.Links)
	}

	serial, err := store.GetItem(context.Background(), items[1].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if len(serial.Seasons) != 2 {
		t.Fatalf("expected 2 seasons, got %d", len(serial.Seasons))
	}
	if got := len(serial.Seasons[0].Episodes); got != 2 {
		t.Fatalf("expected 2 episodes in season 1, got %d", got)
	}
	if got := len(serial.Seasons[1].Episodes); got != 3 {
		t.Fatalf("expected 3 episodes in season 2, got %d", got)
	}
	first := serial.Seasons[0].Episodes[0]
	if len(first.Links) != 1 || first.Links[0].FileID != "s1e1" {
		t.Fatalf("episode links changed: %+v", first.Links)
	}

	gama, err := store.GetItem(context.Background(), items[3].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if gama.Year != 0 {
		t.Fatalf("mismatched match should not be merged, got year %d", gama.Year)
	}
}

func TestUpdateMetadataCancelledWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	items := testsupport.AddItems(t, store, testsupport.Movie("Alfa", 1, "a1"))

	metadata := &fakeMetadata{entries: map[string]entry{
		"Alfa": {externalID: 1, title: "Alfa", year: 2001},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingest.NewUpdater(store, metadata, ingest.Options{}).UpdateMetadata(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	alfa, err := store.GetItem(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if alfa.Year != 0 {
		t.Fatalf("cancelled update wrote year %d", alfa.Year)
	}
}

type failingMergeStore struct {
	*catalog.Store
}

func (failingMergeStore) MergeMetadata(context.Context, []*catalog.Item) error {
	return services.Wrap(services.ErrStore, "fake", "merge metadata", "disk full", nil)
}

func TestUpdateMetadataReturnsStoreFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.AddItems(t, store, testsupport.Movie("Alfa", 1, "a1"))

	metadata := &fakeMetadata{entries: map[string]entry{
		"Alfa": {externalID: 1, title: "Alfa", year: 2001},
	}}
	_, err := ingest.NewUpdater(failingMergeStore{store}, metadata, ingest.Options{}).UpdateMetadata(context.Background())
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}
