package logging

import (
	"context"
	"log/slog"

	"mycinema/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one sync or refresh run.
	FieldRunID = "run_id"
	// FieldList is the candidate title list feeding a sync run.
	FieldList = "list"
	// FieldKind is the media kind (movie or show).
	FieldKind = "kind"
	// FieldItemID is the catalog item identifier.
	FieldItemID = "item_id"
	// FieldTitle is the title currently being processed.
	FieldTitle = "title"
	// FieldDecisionType names what was decided (dedupe, policy, links).
	FieldDecisionType = "decision_type"
	// FieldDecisionResult is the outcome of a decision.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason explains the outcome.
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if list, ok := services.ListFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldList, list))
	}
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
