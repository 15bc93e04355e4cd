package logging

import (
	"context"
	"log/slog"

	"webtlo/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one synchronization run.
	FieldRunID = "run_id"
	// FieldClientID identifies the torrent client being processed.
	FieldClientID = "client_id"
	// FieldSubsectionID identifies the subsection being processed.
	FieldSubsectionID = "subsection_id"
	FieldTopicID      = "topic_id"
	FieldEventType    = "event_type"
	FieldImpact       = "impact"
	FieldError        = "error"
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
	if id, ok := services.ClientIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldClientID, id))
	}
	if id, ok := services.SubsectionIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSubsectionID, id))
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
	return logger.With(Args(fields...)...)
}
