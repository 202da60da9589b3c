package refresh_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mycinema/internal/catalog"
	"mycinema/internal/linkmatch"
	"mycinema/internal/refresh"
	"mycinema/internal/services"
	"mycinema/internal/testsupport"
)

const gib = linkmatch.GiB

type fakeSearcher struct {
	files map[string][]linkmatch.Candidate
	errs  map[string]error
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]linkmatch.Candidate, error) {
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.files[query], nil
}

func daysAgo(days int) *time.Time {
	at := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	return &at
}

func fileIDs(links []catalog.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.FileID
	}
	return out
}

func TestRefreshReplacesStaleLinksAndStampsEveryItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := testsupport.Movie("Kolja", 1, "old-kolja")
	stale.Year = 1996
	stale.LastLinkCheck = daysAgo(91)
	recent := testsupport.Movie("Pelíšky", 2, "old-pelisky")
	recent.Year = 1999
	recent.LastLinkCheck = daysAgo(89)
	empty := testsupport.Movie("Nikde", 3)
	manual := testsupport.Movie("Ruční", 4)
	manual.Links = []catalog.Link{{FileID: "human", Quality: "manual", Verified: true}, {FileID: "auto-stale"}}
	manual.LastLinkCheck = daysAgo(400)
	testsupport.AddItems(t, store, stale, recent, empty, manual)

	searcher := &fakeSearcher{files: map[string][]linkmatch.Candidate{
		"Kolja 1996": {
			{ID: "old-kolja", Name: "Kolja.1996.mkv", Size: 20 * gib},
			{ID: "new-kolja", Name: "Kolja.1996.CZ.avi", Size: 5 * gib},
		},
		"Ruční": {{ID: "intruder", Name: "Rucni.mkv", Size: gib}},
	}}
	refresher := refresh.New(store, linkmatch.NewResolver(searcher), refresh.Options{})

	result, err := refresher.RefreshStaleLinks(ctx)
	if err != nil {
		t.Fatalf("RefreshStaleLinks failed: %v", err)
	}
	want := refresh.Result{
		Updated:       1,
		Failed:        1,
		UpdatedTitles: []string{"Kolja"},
		FailedTitles:  []string{"Nikde"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}

	gotStale, err := store.GetItem(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if diff := cmp.Diff([]string{"old-kolja", "new-kolja"}, fileIDs(gotStale.Links)); diff != "" {
		t.Fatalf("expected own file to be reselectable (-want +got):\n%s", diff)
	}
	if gotStale.LastLinkCheck == nil || gotStale.LastLinkCheck.Before(*stale.LastLinkCheck) {
		t.Fatalf("expected stale item to be stamped, got %v", gotStale.LastLinkCheck)
	}

	gotEmpty, err := store.GetItem(ctx, empty.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if gotEmpty.LastLinkCheck == nil {
		t.Fatal("item without links must still be stamped")
	}

	gotRecent, err := store.GetItem(ctx, recent.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if diff := cmp.Diff([]string{"old-pelisky"}, fileIDs(gotRecent.Links)); diff != "" {
		t.Fatalf("recently checked item must be left alone (-want +got):\n%s", diff)
	}

	gotManual, err := store.GetItem(ctx, manual.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if diff := cmp.Diff([]string{"human", "auto-stale"}, fileIDs(gotManual.Links)); diff != "" {
		t.Fatalf("item with a verified link must never change (-want +got):\n%s", diff)
	}

	second, err := refresher.RefreshStaleLinks(ctx)
	if err != nil {
		t.Fatalf("second RefreshStaleLinks failed: %v", err)
	}
	if second.Updated != 0 || second.Failed != 1 {
		t.Fatalf("expected only the linkless item again, got %+v", second)
	}
}

func TestRefreshFailureClearsLinksAndStamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.Movie("Kolja", 1, "old")
	testsupport.AddItems(t, store, item)
	searcher := &fakeSearcher{errs: map[string]error{
		"Kolja": services.Wrap(services.ErrTransient, "webshare", "search", "timeout", nil),
	}}
	refresher := refresh.New(store, linkmatch.NewResolver(searcher), refresh.Options{})

	result, err := refresher.RefreshStaleLinks(ctx)
	if err != nil {
		t.Fatalf("per-item failures must not abort the pass: %v", err)
	}
	if result.Failed != 1 || result.FailedTitles[0] != "Kolja" {
		t.Fatalf("unexpected result %+v", result)
	}
	got, err := store.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.LastLinkCheck == nil || len(got.Links) != 0 {
		t.Fatalf("expected stamped item without links, got check=%v links=%v", got.LastLinkCheck, got.Links)
	}
}

func TestRefreshShowEpisodesCapsLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	show := &catalog.Item{Kind: catalog.KindShow, Title: "Most", ExternalID: 9, Year: 2019, Seasons: []catalog.Season{
		{Number: 0, Episodes: []catalog.Episode{{Number: 1}}},
		{Number: 1, Year: 2019, Episodes: []catalog.Episode{{Number: 1}, {Number: 2}}},
	}}
	testsupport.AddItems(t, store, show)

	searcher := &fakeSearcher{files: map[string][]linkmatch.Candidate{
		"Most 2019": {
			{ID: "e1-a", Name: "Most.S01E01.2160p.mkv", Size: 9 * gib},
			{ID: "e1-b", Name: "Most.S01E01.1080p.mkv", Size: 4 * gib},
			{ID: "e1-c", Name: "Most.S01E01.720p.mkv", Size: gib + gib/2},
			{ID: "e1-d", Name: "Most.S01E01.sd.mkv", Size: gib / 2},
		},
	}}
	refresher := refresh.New(store, linkmatch.NewResolver(searcher), refresh.Options{MaxLinks: 2})

	result, err := refresher.RefreshStaleLinks(ctx)
	if err != nil {
		t.Fatalf("RefreshStaleLinks failed: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	got, err := store.GetItem(ctx, show.ID)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if diff := cmp.Diff([]string{"e1-a", "e1-b"}, fileIDs(got.AllLinks())); diff != "" {
		t.Fatalf("unexpected episode links (-want +got):\n%s", diff)
	}
}

type recordingStore struct {
	items   []*catalog.Item
	batches []int
	applied []int64
	failAt  int
}

func (s *recordingStore) StaleItems(context.Context, time.Time) ([]*catalog.Item, error) {
	return s.items, nil
}

func (s *recordingStore) FileIDs(context.Context) ([]string, error) {
	return nil, nil
}

func (s *recordingStore) ApplyRefresh(ctx context.Context, updates []catalog.RefreshUpdate) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrStore, "catalog", "apply refresh", "", err)
	}
	s.batches = append(s.batches, len(updates))
	for _, update := range updates {
		s.applied = append(s.applied, update.ItemID)
	}
	if s.failAt > 0 && len(s.batches) == s.failAt {
		return services.Wrap(services.ErrStore, "catalog", "apply refresh", "database is locked", nil)
	}
	return nil
}

func TestRefreshCheckpointsInBatches(t *testing.T) {
	store := &recordingStore{}
	for i := range 25 {
		store.items = append(store.items, &catalog.Item{ID: int64(i + 1), Kind: catalog.KindMovie, Title: fmt.Sprintf("Film %d", i)})
	}
	refresher := refresh.New(store, linkmatch.NewResolver(&fakeSearcher{}), refresh.Options{CheckpointEvery: 10})

	result, err := refresher.RefreshStaleLinks(context.Background())
	if err != nil {
		t.Fatalf("RefreshStaleLinks failed: %v", err)
	}
	if result.Failed != 25 {
		t.Fatalf("expected every linkless item to count as failed, got %+v", result)
	}
	if diff := cmp.Diff([]int{10, 10, 5}, store.batches); diff != "" {
		t.Fatalf("unexpected checkpoints (-want +got):\n%s", diff)
	}
}

func TestRefreshStoreFailureAborts(t *testing.T) {
	store := &recordingStore{failAt: 1}
	for i := range 5 {
		store.items = append(store.items, &catalog.Item{ID: int64(i + 1), Kind: catalog.KindMovie, Title: fmt.Sprintf("Film %d", i)})
	}
	refresher := refresh.New(store, linkmatch.NewResolver(&fakeSearcher{}), refresh.Options{CheckpointEvery: 2})

	if _, err := refresher.RefreshStaleLinks(context.Background()); !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if diff := cmp.Diff([]int{2}, store.batches); diff != "" {
		t.Fatalf("expected the pass to stop at the failing checkpoint (-want +got):\n%s", diff)
	}
}

// cancellingResolver finds one file per movie and cancels the pass while
// resolving cancelAt.
type cancellingResolver struct {
	cancelAt string
	cancel   context.CancelFunc
}

func (c *cancellingResolver) FindLinks(ctx context.Context, q linkmatch.Query, _ linkmatch.ClaimSet) ([]linkmatch.Candidate, error) {
	if q.Title == c.cancelAt {
		c.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []linkmatch.Candidate{{ID: "file-" + q.Title, Name: q.Title + ".mkv", Size: gib}}, nil
}

func TestRefreshCancelledDuringLastItemKeepsFinishedItems(t *testing.T) {
	store := &recordingStore{items: []*catalog.Item{
		{ID: 1, Kind: catalog.KindMovie, Title: "a"},
		{ID: 2, Kind: catalog.KindMovie, Title: "b"},
		{ID: 3, Kind: catalog.KindMovie, Title: "c", Links: []catalog.Link{{FileID: "old-c"}}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	refresher := refresh.New(store, &cancellingResolver{cancelAt: "c", cancel: cancel}, refresh.Options{CheckpointEvery: 10})

	result, err := refresher.RefreshStaleLinks(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrStore) {
		t.Fatalf("cancellation reported as store failure: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2}, store.applied); diff != "" {
		t.Fatalf("unexpected persisted items (-want +got):\n%s", diff)
	}
	if result.Updated != 2 || result.Failed != 0 {
		t.Fatalf("interrupted item must not count as failed: %+v", result)
	}
}

func TestRefreshCancelledBetweenItemsFlushesCheckpoint(t *testing.T) {
	store := &recordingStore{items: []*catalog.Item{
		{ID: 1, Kind: catalog.KindMovie, Title: "a"},
		{ID: 2, Kind: catalog.KindMovie, Title: "b"},
		{ID: 3, Kind: catalog.KindMovie, Title: "c"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	refresher := refresh.New(store, &cancellingResolver{cancelAt: "b", cancel: cancel}, refresh.Options{CheckpointEvery: 10})

	if _, err := refresher.RefreshStaleLinks(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if diff := cmp.Diff([]int64{1}, store.applied); diff != "" {
		t.Fatalf("unexpected persisted items (-want +got):\n%s", diff)
	}
}
