package logging

import (
	"context"
	"log/slog"

	"farcomms/internal/services"
)

// Record keys shared by every component.
const (
	FieldComponent     = "component"
	FieldStage         = "stage"
	FieldSpeaker       = "speaker"
	FieldCorrelationID = "correlation_id"
	// FieldEventType is a stable machine-readable name for a warning.
	FieldEventType = "event_type"
	// FieldErrorHint says what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact says what the caller got instead of a clean result.
	FieldImpact = "impact"
	FieldAlert  = "alert"
)

// WithContext returns logger tagged with the services.Scope stored in ctx.
// A nil logger becomes a no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	scope := services.ScopeFrom(ctx)
	args := make([]any, 0, 3)
	if scope.Stage != "" {
		args = append(args, slog.String(FieldStage, scope.Stage))
	}
	if scope.Speaker != "" {
		args = append(args, slog.String(FieldSpeaker, scope.Speaker))
	}
	if scope.RequestID != "" {
		args = append(args, slog.String(FieldCorrelationID, scope.RequestID))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}

// Component returns logger tagged with a component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, name))
}
