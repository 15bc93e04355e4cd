package services

import "context"

type contextKey string

const (
	runIDKey        contextKey = "run_id"
	clientIDKey     contextKey = "client_id"
	subsectionIDKey contextKey = "subsection_id"
)

// WithRunID annotates context with the synchronization run identifier.
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

// WithClientID annotates context with the torrent client identifier.
func WithClientID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDKey, id)
}

// ClientIDFromContext returns the torrent client identifier if present.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(clientIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSubsectionID annotates context with the subsection being processed.
func WithSubsectionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, subsectionIDKey, id)
}

// SubsectionIDFromContext extracts the subsection identifier if present.
func SubsectionIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(subsectionIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
