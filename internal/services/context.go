package services

import "context"

type contextKey string

const (
	replayPathKey contextKey = "replay_path"
	sourceKey     contextKey = "source"
	requestIDKey  contextKey = "request_id"
)

// WithReplayPath annotates context with the replay file being handled.
func WithReplayPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, replayPathKey, path)
}

// ReplayPathFromContext returns the replay path if present.
func ReplayPathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(replayPathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSource annotates context with the watched directory that produced an event.
func WithSource(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, dir)
}

// SourceFromContext returns the watched directory if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
