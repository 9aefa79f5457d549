package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"recwatch/internal/dedup"
	"recwatch/internal/history"
	"recwatch/internal/logging"
	"recwatch/internal/metrics"
	"recwatch/internal/notifications"
	"recwatch/internal/parser"
	"recwatch/internal/services"
	"recwatch/internal/stability"
)

const defaultParseTimeout = 180 * time.Second

// Stabilizer waits until a file stops growing.
type Stabilizer interface {
	Await(ctx context.Context, path string) (stability.Result, error)
}

// Recorder appends terminal outcomes to the dispatch history.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

// Dependencies wires the Dispatcher to its collaborators. History and
// Notifier are optional.
type Dependencies struct {
	Queue        *Queue
	Store        dedup.Store
	Detector     Stabilizer
	Parser       parser.Client
	History      Recorder
	Notifier     notifications.Service
	Logger       *slog.Logger
	ParseTimeout time.Duration
}

// Report describes the terminal outcome of one candidate.
type Report struct {
	Candidate Candidate
	Outcome   string
	Reason    string
	Recorded  bool
	Err       error
}

// Dispatcher is the queue's only consumer. It processes one candidate at a
// time from dequeue to terminal outcome.
type Dispatcher struct {
	queue        *Queue
	store        dedup.Store
	detector     Stabilizer
	parser       parser.Client
	history      Recorder
	notifier     notifications.Service
	logger       *slog.Logger
	parseTimeout time.Duration

	onSettled func(Report)
}

// NewDispatcher constructs a dispatcher from deps.
func NewDispatcher(deps Dependencies) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := deps.ParseTimeout
	if timeout <= 0 {
		timeout = defaultParseTimeout
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Dispatcher{
		queue:        deps.Queue,
		store:        deps.Store,
		detector:     deps.Detector,
		parser:       deps.Parser,
		history:      deps.History,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "dispatcher"),
		parseTimeout: timeout,
	}
}

// OnSettled registers a callback invoked after every terminal outcome.
func (d *Dispatcher) OnSettled(fn func(Report)) {
	d.onSettled = fn
}

// Run drains the queue until the stop sentinel is dequeued. Cancelling ctx
// interrupts a pending stability wait but not an in-flight parse call; the
// caller ends the loop with Queue.Stop.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.queue == nil || d.store == nil || d.detector == nil || d.parser == nil {
		return errors.New("dispatcher is missing a dependency")
	}
	d.logger.Info("dispatcher started", logging.String(logging.FieldEventType, "dispatcher_started"))
	for {
		candidate, ok := d.queue.Pop()
		if !ok {
			d.logger.Info("dispatcher stopped", logging.String(logging.FieldEventType, "dispatcher_stopped"))
			return nil
		}
		metrics.SetQueueDepth(d.queue.Len())
		report := d.process(ctx, candidate)
		d.queue.Done(candidate.Path)
		metrics.RecordDispatch(report.Outcome)
		if d.onSettled != nil {
			d.onSettled(report)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, c Candidate) Report {
	ctx = services.WithReplayPath(ctx, c.Path)
	if c.Source != "" {
		ctx = services.WithSource(ctx, c.Source)
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, d.logger)

	report := Report{Candidate: c}
	entry := history.Entry{Path: c.Path, MatchStartedAt: matchStarted(c.Path)}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		entry.RequestID = id
	}

	if d.store.IsProcessed(c.Path) {
		logger.Info("replay already processed; skipping",
			logging.String(logging.FieldEventType, "replay_skipped"),
		)
		report.Outcome = history.OutcomeSkipped
		entry.Outcome = report.Outcome
		d.appendHistory(ctx, logger, entry)
		return report
	}

	logger.Debug("waiting for replay to stabilize")
	result, err := d.detector.Await(ctx, c.Path)
	entry.Size = result.Size
	entry.Restarts = result.Restarts
	entry.StabilityWait = result.Waited
	if err != nil {
		report.Err = err
		if ctx.Err() != nil {
			logger.Info("stability check interrupted by shutdown; replay not recorded",
				logging.String(logging.FieldEventType, "stability_cancelled"),
			)
			report.Outcome = history.OutcomeCancelled
		} else {
			logging.WarnWithContext(logger, "stability check failed; replay abandoned", "stability_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the replay directory"),
				logging.String(logging.FieldImpact, "replay will not be parsed until it is created again or scanned"),
			)
			report.Outcome = history.OutcomeAbandoned
			report.Reason = "stat_error"
		}
		entry.Outcome = report.Outcome
		entry.Reason = report.Reason
		entry.Detail = err.Error()
		d.appendHistory(ctx, logger, entry)
		return report
	}

	switch result.Outcome {
	case stability.Disappeared:
		logger.Info("replay disappeared before it stabilized",
			logging.String(logging.FieldEventType, "replay_disappeared"),
			logging.Duration("waited", result.Waited),
		)
		report.Outcome = history.OutcomeDisappeared
		entry.Outcome = report.Outcome
		d.appendHistory(ctx, logger, entry)
		return report
	case stability.Abandoned:
		logging.WarnWithContext(logger, "replay kept changing; stability check abandoned", "stability_abandoned",
			logging.Int("restarts", result.Restarts),
			logging.Int64("size_bytes", result.Size),
			logging.String(logging.FieldErrorHint, "raise stability.max_restarts or stability.verification_seconds"),
			logging.String(logging.FieldImpact, "replay was not parsed"),
		)
		report.Outcome = history.OutcomeAbandoned
		report.Reason = "max_restarts"
		entry.Outcome = report.Outcome
		entry.Reason = report.Reason
		d.appendHistory(ctx, logger, entry)
		return report
	}

	metrics.ObserveStabilityWait(result.Waited)
	logger.Info("replay stable; dispatching",
		logging.String(logging.FieldEventType, "replay_stable"),
		logging.Int64("size_bytes", result.Size),
		logging.Int("restarts", result.Restarts),
		logging.Duration("waited", result.Waited),
	)
	return d.dispatch(ctx, logger, c, entry)
}

// dispatch performs the single parse attempt and records its outcome.
func (d *Dispatcher) dispatch(ctx context.Context, logger *slog.Logger, c Candidate, entry history.Entry) Report {
	report := Report{Candidate: c}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.parseTimeout)
	start := time.Now()
	resp, err := d.parser.Parse(callCtx, c.Path)
	cancel()
	elapsed := resp.Duration
	if elapsed <= 0 {
		elapsed = time.Since(start)
	}
	entry.ParseDuration = elapsed
	entry.StatusCode = resp.StatusCode

	outcome := dedup.Outcome{Result: dedup.ResultParsed}
	if err != nil {
		report.Err = err
		report.Outcome = history.OutcomeFailed
		report.Reason = services.FailureReason(err)
		var statusErr *parser.StatusError
		if errors.As(err, &statusErr) {
			entry.StatusCode = statusErr.StatusCode
		}
		outcome = dedup.Outcome{Result: dedup.ResultFailed, Detail: err.Error()}
		entry.Detail = err.Error()
		logging.WarnWithContext(logger, "replay parse failed; recorded as processed", "parse_failed",
			logging.Error(err),
			logging.String("reason", report.Reason),
			logging.Int("status_code", entry.StatusCode),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldErrorHint, "check the parse service logs; remove the record with `recwatch records forget` to retry"),
			logging.String(logging.FieldImpact, "replay will not be retried automatically"),
		)
	} else {
		report.Outcome = history.OutcomeParsed
		logger.Info("replay parsed",
			logging.String(logging.FieldEventType, "replay_parsed"),
			logging.Int("status_code", resp.StatusCode),
			logging.Duration("duration", elapsed),
		)
	}
	metrics.ObserveParse(report.Outcome, elapsed)
	entry.Outcome = report.Outcome
	entry.Reason = report.Reason

	if err := d.store.MarkProcessed(c.Path, outcome); err != nil {
		metrics.RecordDedupPersistFailure()
		logging.WarnWithContext(logger, "failed to persist processed record; keeping it in memory", "dedup_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the state directory"),
			logging.String(logging.FieldImpact, "replay may be parsed again after a restart"),
		)
	}
	report.Recorded = true

	sideCtx := context.WithoutCancel(ctx)
	d.appendHistory(sideCtx, logger, entry)
	d.notify(sideCtx, logger, report, entry)
	return report
}
