package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recwatch/internal/logging"
)

// pollSubscription snapshots dir now; only entries that appear afterwards
// are reported.
func (w *Watcher) pollSubscription(dir string) (func(context.Context), error) {
	seen, err := listNames(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", dir, err)
	}
	return func(ctx context.Context) {
		w.pollLoop(ctx, dir, seen)
	}, nil
}

func (w *Watcher) pollLoop(ctx context.Context, dir string, seen map[string]struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !failing {
				logging.WarnWithContext(w.logger, "failed to list replay directory", "poll_failed",
					logging.String("path", dir),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the directory still exists and is mounted"),
					logging.String(logging.FieldImpact, "new replays are not detected until listing succeeds"),
				)
				failing = true
			}
			continue
		}
		if failing {
			w.logger.Info("replay directory readable again",
				logging.String(logging.FieldEventType, "poll_recovered"),
				logging.String("path", dir),
			)
			failing = false
		}

		current := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			current[name] = struct{}{}
			if _, ok := seen[name]; ok {
				continue
			}
			if entry.IsDir() {
				continue
			}
			w.handle(filepath.Join(dir, name), dir)
		}
		seen = current
	}
}

func listNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = struct{}{}
	}
	return names, nil
}
