package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"recwatch/internal/history"
	"recwatch/internal/logging"
	"recwatch/internal/notifications"
	"recwatch/internal/replay"
)

func (d *Dispatcher) appendHistory(ctx context.Context, logger *slog.Logger, entry history.Entry) {
	if d.history == nil {
		return
	}
	if _, err := d.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "failed to append dispatch history", "history_write_failed",
			logging.Error(err),
			logging.String("outcome", entry.Outcome),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
			logging.String(logging.FieldImpact, "outcome missing from `recwatch history`"),
		)
	}
}

func (d *Dispatcher) notify(ctx context.Context, logger *slog.Logger, report Report, entry history.Entry) {
	if d.notifier == nil {
		return
	}
	event := notifications.EventReplayParsed
	payload := notifications.Payload{"name": filepath.Base(report.Candidate.Path)}
	if !entry.MatchStartedAt.IsZero() {
		payload["started"] = entry.MatchStartedAt
	}
	if report.Outcome == history.OutcomeFailed {
		event = notifications.EventReplayFailed
		payload["reason"] = report.Reason
		if report.Err != nil {
			payload["error"] = report.Err
		}
	}
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not send notification")
			return
		}
		logger.Debug("notification failed", logging.Error(err), logging.String("event", string(event)))
	}
}

func matchStarted(path string) time.Time {
	name, err := replay.ParseName(path)
	if err != nil {
		return time.Time{}
	}
	return name.Started
}
