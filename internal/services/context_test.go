package services_test

import (
	"context"
	"testing"

	"mycinema/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := services.WithItemID(context.Background(), 7)
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithList(ctx, "csfd-top")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected item id %d ok=%v", id, ok)
	}
	if run, ok := services.RunIDFromContext(ctx); !ok || run != "run-1" {
		t.Fatalf("unexpected run id %q ok=%v", run, ok)
	}
	if list, ok := services.ListFromContext(ctx); !ok || list != "csfd-top" {
		t.Fatalf("unexpected list %q ok=%v", list, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "")
	ctx = services.WithList(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
	if _, ok := services.ListFromContext(ctx); ok {
		t.Fatal("expected no list")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id")
	}
}
