package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"recwatch/internal/catalog"
	"recwatch/internal/ingest"
	"recwatch/internal/logging"
	"recwatch/internal/metrics"
	"recwatch/internal/preflight"
	"recwatch/internal/replay"
)

// Mode names the event delivery mechanism.
type Mode string

const (
	ModeNative  Mode = "native"
	ModePolling Mode = "polling"
)

const defaultPollingInterval = time.Second

// ErrNoTargets is returned by Start when no target could be subscribed.
var ErrNoTargets = errors.New("no replay directory could be watched")

// Sink accepts candidates. *ingest.Queue satisfies it.
type Sink interface {
	Push(c ingest.Candidate) error
	Len() int
}

// Options configures a Watcher.
type Options struct {
	UsePolling      bool
	PollingInterval time.Duration
	Logger          *slog.Logger
}

// Watcher subscribes to every target and pushes matching files to a Sink.
type Watcher struct {
	targets  []catalog.WatchTarget
	sink     Sink
	mode     Mode
	interval time.Duration
	logger   *slog.Logger
	check    func(path string) preflight.Result
	now      func() time.Time

	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	active  []string
}

// New constructs a watcher for targets.
func New(targets []catalog.WatchTarget, sink Sink, opts Options) *Watcher {
	mode := ModeNative
	if opts.UsePolling {
		mode = ModePolling
	}
	interval := opts.PollingInterval
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	return &Watcher{
		targets:  targets,
		sink:     sink,
		mode:     mode,
		interval: interval,
		logger:   logging.NewComponentLogger(opts.Logger, "watcher"),
		check: func(path string) preflight.Result {
			return preflight.CheckDirectoryAccess("Replay directory", path, false)
		},
		now: time.Now,
	}
}

// Mode reports the delivery mode in use.
func (w *Watcher) Mode() Mode { return w.mode }

// Active returns the directories currently subscribed.
func (w *Watcher) Active() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.active...)
}

// Start subscribes to every reachable target, one goroutine each, and
// returns the number subscribed. Targets that are missing or unreadable are
// logged and skipped. Subscriptions end when ctx is cancelled; Wait joins
// them.
func (w *Watcher) Start(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return len(w.active), nil
	}

	for _, target := range w.targets {
		if res := w.check(target.Path); !res.Passed {
			logging.WarnWithContext(w.logger, "replay directory unavailable; skipping", "watch_target_skipped",
				logging.String("path", target.Path),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldErrorHint, "create the directory or fix its permissions, then restart"),
				logging.String(logging.FieldImpact, "replays saved there will not be detected"),
			)
			continue
		}
		sub, err := w.subscribe(ctx, target.Path)
		if err != nil {
			logging.WarnWithContext(w.logger, "failed to watch replay directory; skipping", "watch_target_failed",
				logging.String("path", target.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches or set watch.use_polling"),
				logging.String(logging.FieldImpact, "replays saved there will not be detected"),
			)
			continue
		}
		w.active = append(w.active, target.Path)
		w.wg.Add(1)
		go func(path string) {
			defer w.wg.Done()
			sub(ctx)
		}(target.Path)
		w.logger.Info("watching replay directory",
			logging.String(logging.FieldEventType, "watch_target_started"),
			logging.String("path", target.Path),
			logging.String("mode", string(w.mode)),
		)
	}

	metrics.SetWatchTargets(string(w.mode), len(w.active))
	if len(w.active) == 0 {
		return 0, ErrNoTargets
	}
	w.running = true
	return len(w.active), nil
}

// Wait blocks until every subscription has returned.
func (w *Watcher) Wait() {
	w.wg.Wait()
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	metrics.SetWatchTargets(string(w.mode), 0)
}

// subscribe prepares a subscription for dir. Setup errors are returned
// synchronously; the returned loop runs until ctx is done.
func (w *Watcher) subscribe(ctx context.Context, dir string) (func(context.Context), error) {
	if w.mode == ModePolling {
		return w.pollSubscription(dir)
	}
	return w.nativeSubscription(dir)
}

// handle is the single entry point for both modes.
func (w *Watcher) handle(path, source string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Debug("created entry vanished before inspection",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	if info.IsDir() {
		return
	}
	if !replay.IsFinal(path) {
		metrics.RecordCandidate(string(w.mode), metrics.CandidateRejected)
		w.logger.Debug("ignoring non-replay file", logging.String("path", path))
		return
	}

	err = w.sink.Push(ingest.Candidate{
		Path:   path,
		Source: source,
		Mode:   string(w.mode),
		SeenAt: w.now(),
	})
	switch {
	case err == nil:
		metrics.RecordCandidate(string(w.mode), metrics.CandidateAccepted)
		metrics.SetQueueDepth(w.sink.Len())
		w.logger.Info("replay detected",
			logging.String(logging.FieldEventType, "replay_detected"),
			logging.String("path", path),
			logging.String("file", filepath.Base(path)),
		)
	case errors.Is(err, ingest.ErrDuplicate):
		metrics.RecordCandidate(string(w.mode), metrics.CandidateDuplicate)
		w.logger.Debug("replay already queued", logging.String("path", path))
	case errors.Is(err, ingest.ErrQueueStopped):
		w.logger.Debug("queue stopped; dropping replay", logging.String("path", path))
	default:
		logging.WarnWithContext(w.logger, "failed to queue replay", "enqueue_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "replay will not be parsed until scanned"),
		)
	}
}
