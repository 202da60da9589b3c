package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"mycinema/internal/catalog"
	"mycinema/internal/linkmatch"
	"mycinema/internal/metrics"
	"mycinema/internal/runner"
	"mycinema/internal/services"
	"mycinema/internal/testsupport"
)

var pelisky = testsupport.BackendMovie{
	ID:     1,
	Title:  "Pelíšky",
	Year:   1999,
	Genres: []string{"Komedie"},
	Files:  []testsupport.BackendFile{{Ident: "pel-1", Name: "Pelisky.1999.CZ.1080p.mkv", Size: 4 << 30}},
}

func newRunner(t *testing.T, reg prometheus.Registerer) (*runner.Runner, *catalog.Store, string) {
	t.Helper()
	backend := testsupport.NewBackend(t, pelisky)
	cfg := testsupport.NewConfig(t,
		testsupport.WithTMDB(backend.URL, "key"),
		testsupport.WithWebshare(backend.URL, "jan", "tajne"),
	)
	store := testsupport.MustOpenStore(t, cfg)
	r, err := runner.New(cfg, store, runner.Options{Metrics: metrics.New(reg), HTTPClient: backend.Client()})
	if err != nil {
		t.Fatalf("runner.New failed: %v", err)
	}
	return r, store, cfg.LockPath()
}

func TestSyncTitlesThenRefresh(t *testing.T) {
	r, store, _ := newRunner(t, prometheus.NewRegistry())
	ctx := context.Background()

	result, err := r.SyncTitles(ctx, catalog.KindMovie, []string{"Pelíšky", "Neexistuje"}, 5)
	if err != nil {
		t.Fatalf("SyncTitles failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Pelíšky"}, result.Added); diff != "" {
		t.Fatalf("unexpected added (-want +got):\n%s", diff)
	}

	items, err := store.Items(ctx, catalog.KindMovie)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 1 || items[0].Year != 1999 || len(items[0].Links) != 1 || items[0].Links[0].Quality != "4.00 GB" {
		t.Fatalf("unexpected catalog contents: %#v", items)
	}

	refreshed, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.Updated != 1 {
		t.Fatalf("expected the never-checked movie to be refreshed, got %+v", refreshed)
	}
	again, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if again.Updated != 0 || again.Failed != 0 {
		t.Fatalf("expected nothing stale after refresh, got %+v", again)
	}
}

func TestRunsAreSerializedAcrossProcesses(t *testing.T) {
	r, _, lockPath := newRunner(t, nil)

	other := flock.New(lockPath)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("failed to take lock: ok=%v err=%v", ok, err)
	}
	if _, err := r.Refresh(context.Background()); !errors.Is(err, runner.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := other.Unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh after unlock failed: %v", err)
	}
}

func TestListsByKind(t *testing.T) {
	r, _, _ := newRunner(t, nil)
	shows := r.Lists(catalog.KindShow)
	want := []string{"csfd-czsk-shows", "csfd-documentary-shows", "csfd-top-shows", "tmdb-top-rated-shows"}
	if diff := cmp.Diff(want, shows); diff != "" {
		t.Fatalf("unexpected show lists (-want +got):\n%s", diff)
	}
}

func TestSyncListsRejectsUnknownList(t *testing.T) {
	r, _, _ := newRunner(t, nil)
	if _, err := r.SyncLists(context.Background(), catalog.KindMovie, []string{"nope"}, 3); err == nil {
		t.Fatal("expected unknown list to fail")
	}
}

func TestUpdateMetadataTakesRunLock(t *testing.T) {
	r, store, lockPath := newRunner(t, nil)
	ctx := context.Background()
	items := testsupport.AddItems(t, store, testsupport.Movie("Pelíšky", 1, "pel-1"))

	other := flock.New(lockPath)
	if ok, err := other.TryLock(); err != nil || !ok {
		t.Fatalf("failed to take lock: ok=%v err=%v", ok, err)
	}
	if _, err := r.UpdateMetadata(ctx); !errors.Is(err, runner.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := other.Unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	result, err := r.UpdateMetadata(ctx)
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Pelíšky"}, result.UpdatedTitles); diff != "" {
		t.Fatalf("unexpected updated titles (-want +got):\n%s", diff)
	}
	item, err := store.GetItem(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Year != 1999 {
		t.Fatalf("expected year 1999, got %d", item.Year)
	}
	if diff := cmp.Diff([]string{"Komedie"}, item.Genres); diff != "" {
		t.Fatalf("unexpected genres (-want +got):\n%s", diff)
	}
}

func TestFindLinksIgnoresCatalogClaims(t *testing.T) {
	r, store, _ := newRunner(t, nil)
	ctx := context.Background()
	testsupport.AddItems(t, store, testsupport.Movie("Pelíšky", 1, "pel-1"))

	links, err := r.FindLinks(ctx, linkmatch.Query{Title: " Pelíšky ", Year: 1999})
	if err != nil {
		t.Fatalf("FindLinks failed: %v", err)
	}
	want := []runner.FoundLink{{FileID: "pel-1", Name: "Pelisky.1999.CZ.1080p.mkv", Size: 4 << 30, Quality: "4.00 GB"}}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("unexpected links (-want +got):\n%s", diff)
	}

	links, err = r.FindLinks(ctx, linkmatch.Query{Title: "Kolja", Year: 1996})
	if err != nil {
		t.Fatalf("FindLinks failed: %v", err)
	}
	if links == nil || len(links) != 0 {
		t.Fatalf("expected empty result, got %#v", links)
	}
}

func TestFindLinksValidatesQuery(t *testing.T) {
	r, _, _ := newRunner(t, nil)
	for _, q := range []linkmatch.Query{{Title: "  "}, {Title: "Most!", Season: 1}} {
		if _, err := r.FindLinks(context.Background(), q); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("FindLinks(%+v): expected validation error, got %v", q, err)
		}
	}
}
