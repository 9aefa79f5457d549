package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"recwatch/internal/catalog"
	"recwatch/internal/config"
	"recwatch/internal/dedup"
	"recwatch/internal/history"
	"recwatch/internal/ingest"
	"recwatch/internal/logging"
	"recwatch/internal/metrics"
	"recwatch/internal/notifications"
	"recwatch/internal/parser"
	"recwatch/internal/stability"
	"recwatch/internal/watcher"
)

// ErrAlreadyRunning reports that another process holds the state directory lock.
var ErrAlreadyRunning = errors.New("another recwatch instance is already running")

// Daemon owns the ingestion pipeline for one state directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	store    *dedup.FileStore
	history  *history.Store
	parser   parser.Client
	detector ingest.Stabilizer
	notifier notifications.Service
	env      catalog.Environment

	running atomic.Bool
}

// Option customizes collaborators, mainly for tests.
type Option func(*Daemon)

// WithParser replaces the HTTP parse client.
func WithParser(c parser.Client) Option {
	return func(d *Daemon) { d.parser = c }
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) { d.notifier = n }
}

// WithEnvironment replaces the host environment used for directory discovery.
func WithEnvironment(env catalog.Environment) Option {
	return func(d *Daemon) { d.env = env }
}

// WithStabilizer replaces the size-polling stability detector.
func WithStabilizer(s ingest.Stabilizer) Option {
	return func(d *Daemon) { d.detector = s }
}

// New constructs a daemon with initialized dependencies. The history ledger
// is optional: if it cannot be opened the daemon runs without it.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		store:    dedup.NewFileStore(cfg.Dedup.Path, logger),
		env:      catalog.HostEnvironment(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.parser == nil {
		d.parser = parser.NewHTTPClient(cfg.Parser.URL, cfg.ParserTimeout(), logger)
	}
	if d.detector == nil {
		stable, verify, poll := cfg.StabilityWindows()
		d.detector = stability.New(stable, verify, poll, cfg.Stability.MaxRestarts, logger)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(d.logger, "dispatch history unavailable", "history_open_failed",
				logging.String("path", cfg.History.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the history database or set history.enabled = false"),
				logging.String(logging.FieldImpact, "outcomes will not appear in `recwatch history`"),
			)
		} else {
			d.history = store
		}
	}
	return d, nil
}

// Store exposes the processed-replay store.
func (d *Daemon) Store() *dedup.FileStore { return d.store }

// Running reports whether Run or Scan is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// Targets resolves the directories to watch and logs configured ones that
// are missing.
func (d *Daemon) Targets() []catalog.WatchTarget {
	candidates := catalog.Resolve(d.env, d.cfg.Watch.ReplayDirectories)
	for _, c := range candidates {
		if c.Explicit && !c.Exists {
			logging.WarnWithContext(d.logger, "configured replay directory does not exist", "replay_dir_missing",
				logging.String("path", c.Path),
				logging.String(logging.FieldErrorHint, "check watch.replay_directories"),
				logging.String(logging.FieldImpact, "replays saved there will not be detected"),
			)
		}
	}
	targets := catalog.Targets(candidates)
	if len(candidates) == 0 {
		logging.WarnWithContext(d.logger, "no replay directories discovered", "replay_dirs_not_found",
			logging.String("platform", d.env.Platform),
			logging.String(logging.FieldErrorHint, "set watch.replay_directories in the config file"),
			logging.String(logging.FieldImpact, "nothing will be watched"),
		)
	}
	return targets
}

func (d *Daemon) acquire() error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		d.running.Store(false)
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		d.running.Store(false)
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}
	return nil
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no recwatch process is running"),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.running.Store(false)
}

func (d *Daemon) newDispatcher(queue *ingest.Queue) *ingest.Dispatcher {
	deps := ingest.Dependencies{
		Queue:        queue,
		Store:        d.store,
		Detector:     d.detector,
		Parser:       d.parser,
		Notifier:     d.notifier,
		Logger:       d.logger,
		ParseTimeout: d.cfg.ParserTimeout(),
	}
	if d.history != nil {
		deps.History = d.history
	}
	return ingest.NewDispatcher(deps)
}

// Run watches every target and dispatches new replays until ctx is
// cancelled. Shutdown stops the watchers, lets an in-flight parse call
// finish and be recorded, then returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	d.pruneHistory(ctx)

	queue := ingest.NewQueue()
	dispatcher := d.newDispatcher(queue)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := metrics.Serve(runCtx, d.cfg.Metrics.Bind, d.logger); err != nil {
		logging.WarnWithContext(d.logger, "metrics listener failed to start", "metrics_start_failed",
			logging.String("bind", d.cfg.Metrics.Bind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pick a free address for metrics.bind"),
			logging.String(logging.FieldImpact, "metrics will not be exported"),
		)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "dispatcher exited", "dispatcher_failed", logging.Error(err))
		}
	}()

	w := watcher.New(d.Targets(), queue, watcher.Options{
		UsePolling:      d.cfg.Watch.UsePolling,
		PollingInterval: d.cfg.PollingInterval(),
		Logger:          d.logger,
	})
	active, err := w.Start(runCtx)
	if err != nil {
		cancel()
		queue.Stop()
		w.Wait()
		wg.Wait()
		return err
	}

	d.logger.Info("recwatch started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Int("targets", active),
		logging.String("mode", string(w.Mode())),
		logging.String("lock", d.lockPath),
		logging.String("parser_url", d.cfg.Parser.URL),
	)
	if err := d.notifier.Publish(runCtx, notifications.EventWatcherStarted, notifications.Payload{
		"count": active,
		"mode":  string(w.Mode()),
	}); err != nil {
		d.logger.Debug("start notification failed", logging.Error(err))
	}

	<-ctx.Done()
	d.logger.Info("recwatch shutting down", logging.String(logging.FieldEventType, "daemon_stopping"))
	cancel()
	queue.Stop()
	w.Wait()
	wg.Wait()
	d.logger.Info("recwatch stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

// ScanSummary counts outcomes of a backlog scan.
type ScanSummary struct {
	Found    int
	Queued   int
	Outcomes map[string]int
}

// Scan dispatches every final replay already present in the targets that has
// no record yet, then returns. Cancelling ctx abandons the remaining files.
func (d *Daemon) Scan(ctx context.Context) (ScanSummary, error) {
	summary := ScanSummary{Outcomes: make(map[string]int)}
	if err := d.acquire(); err != nil {
		return summary, err
	}
	defer d.release()

	queue := ingest.NewQueue()
	dispatcher := d.newDispatcher(queue)
	dispatcher.OnSettled(func(r ingest.Report) {
		summary.Outcomes[r.Outcome]++
	})

	for _, target := range d.Targets() {
		files, err := watcher.Existing(target.Path)
		if err != nil {
			logging.WarnWithContext(d.logger, "failed to list replay directory", "scan_list_failed",
				logging.String("path", target.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "replays in this directory were not scanned"),
			)
			continue
		}
		for _, path := range files {
			summary.Found++
			if d.store.IsProcessed(path) {
				continue
			}
			if err := queue.Push(ingest.Candidate{Path: path, Source: target.Path, Mode: "scan", SeenAt: time.Now()}); err == nil {
				summary.Queued++
			}
		}
	}
	d.logger.Info("backlog scan queued",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Int("found", summary.Found),
		logging.Int("queued", summary.Queued),
	)

	queue.Stop()
	if err := dispatcher.Run(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	retention := d.cfg.HistoryRetention()
	if d.history == nil || retention <= 0 {
		return
	}
	removed, err := d.history.PruneBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		d.logger.Debug("history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		d.logger.Info("pruned dispatch history",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("rows", removed),
		)
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}
