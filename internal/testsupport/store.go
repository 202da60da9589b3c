package testsupport

import (
	"context"
	"testing"

	"mycinema/internal/catalog"
	"mycinema/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItems commits items through the sync path and returns them with ids assigned.
func AddItems(t testing.TB, store *catalog.Store, items ...*catalog.Item) []*catalog.Item {
	t.Helper()

	if err := store.CommitSync(context.Background(), items, nil); err != nil {
		t.Fatalf("store.CommitSync: %v", err)
	}
	return items
}

// Movie builds an unsaved movie item with automatic links for the given file ids.
func Movie(title string, externalID int64, fileIDs ...string) *catalog.Item {
	item := &catalog.Item{Kind: catalog.KindMovie, Title: title, ExternalID: externalID}
	for _, id := range fileIDs {
		item.Links = append(item.Links, catalog.Link{FileID: id, Quality: "1.00 GB"})
	}
	return item
}
