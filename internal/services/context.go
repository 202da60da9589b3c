package services

import "context"

type contextKey string

const (
	itemIDKey contextKey = "item_id"
	runIDKey  contextKey = "run_id"
	listKey   contextKey = "list"
)

// WithItemID annotates context with the catalog item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the catalog item identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(itemIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRunID annotates context with the identifier of a sync or refresh run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithList annotates context with the candidate list being ingested.
func WithList(ctx context.Context, list string) context.Context {
	if list == "" {
		return ctx
	}
	return context.WithValue(ctx, listKey, list)
}

// ListFromContext returns the list name if present.
func ListFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(listKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
