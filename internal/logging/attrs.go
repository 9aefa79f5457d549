package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error records err under "error"; a nil error is kept visible as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component attribute. A nil logger
// yields a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const defaultErrorHint = "check logs for details"

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact, filling any the caller left out.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logRequired(logger, slog.LevelWarn, msg, attrs, []Attr{
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
		String(FieldImpact, "operation completed with warnings"),
	})
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logRequired(logger, slog.LevelError, msg, attrs, []Attr{
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
	})
}

func logRequired(logger *slog.Logger, level slog.Level, msg string, attrs, defaults []Attr) {
	if logger == nil {
		return
	}
	present := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		present[a.Key] = struct{}{}
	}
	for _, d := range defaults {
		if _, ok := present[d.Key]; !ok {
			attrs = append(attrs, d)
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func toArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}
