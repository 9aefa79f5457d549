package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler hands each record to every child whose level admits it.
type teeHandler []slog.Handler

// TeeHandler combines handlers into one. Nil handlers are dropped; a single
// survivor is returned as is and none at all yields slog.DiscardHandler.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var kept teeHandler
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return kept[0]
	}
	return kept
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			// Clone so one handler cannot mutate the attrs another sees.
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) derive(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}
