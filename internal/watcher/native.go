package watcher

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"recwatch/internal/logging"
)

func (w *Watcher) nativeSubscription(dir string) (func(context.Context), error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return func(ctx context.Context) {
		defer fw.Close()
		w.nativeLoop(ctx, fw, dir)
	}, nil
}

func (w *Watcher) nativeLoop(ctx context.Context, fw *fsnotify.Watcher, dir string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			// Moves into the directory arrive as Create too.
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handle(event.Name, dir)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "filesystem notification error", "watch_error",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set watch.use_polling = true if this repeats"),
				logging.String(logging.FieldImpact, "some create events may have been missed"),
			)
		}
	}
}
