// Package stability decides when a replay file has finished being written.
//
// A single unchanged size reading is not enough because the OS can buffer
// writes, so the detector runs two phases: a first pass that needs the size
// to hold for StableFor, then a verification sleep of VerifyFor followed by
// one more reading. A change during verification restarts the first pass.
package stability

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"recwatch/internal/logging"
)

// Outcome is the terminal result of a stability check.
type Outcome int

const (
	// Stable means the size held through both phases.
	Stable Outcome = iota
	// Disappeared means the file was gone at some poll.
	Disappeared
	// Abandoned means verification kept failing past the restart ceiling.
	Abandoned
)

func (o Outcome) String() string {
	switch o {
	case Stable:
		return "stable"
	case Disappeared:
		return "disappeared"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes a finished check.
type Result struct {
	Outcome  Outcome
	Size     int64
	Restarts int
	// Waited is the total time spent sleeping between readings.
	Waited time.Duration
}

// StatFunc returns the current size of path. A missing file must be reported
// with an error matching fs.ErrNotExist.
type StatFunc func(path string) (int64, error)

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Detector runs stability checks. The zero value is not usable; build one
// with New.
type Detector struct {
	StableFor    time.Duration
	VerifyFor    time.Duration
	PollInterval time.Duration
	// MaxRestarts caps verification failures; 0 means unlimited.
	MaxRestarts int

	stat   StatFunc
	sleep  SleepFunc
	logger *slog.Logger
}

type phase int

const (
	firstPass phase = iota
	verification
)

// Option customizes a Detector.
type Option func(*Detector)

// WithStat replaces the size probe.
func WithStat(stat StatFunc) Option {
	return func(d *Detector) { d.stat = stat }
}

// WithSleep replaces the wait primitive.
func WithSleep(sleep SleepFunc) Option {
	return func(d *Detector) { d.sleep = sleep }
}

// New returns a Detector that reads sizes with os.Stat and sleeps on real timers.
func New(stableFor, verifyFor, pollInterval time.Duration, maxRestarts int, logger *slog.Logger, opts ...Option) *Detector {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	d := &Detector{
		StableFor:    stableFor,
		VerifyFor:    verifyFor,
		PollInterval: pollInterval,
		MaxRestarts:  maxRestarts,
		stat:         statSize,
		sleep:        sleepContext,
		logger:       logging.NewComponentLogger(logger, "stability"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Await blocks until path is judged stable, disappears, or is abandoned.
// Context cancellation and unexpected stat errors are returned as errors.
func (d *Detector) Await(ctx context.Context, path string) (Result, error) {
	logger := logging.WithContext(ctx, d.logger)
	var res Result

	size, gone, err := d.read(path)
	if err != nil || gone {
		return d.finish(res, gone, err)
	}

	state := firstPass
	var stableFor time.Duration
	for {
		switch state {
		case firstPass:
			if stableFor >= d.StableFor {
				state = verification
				continue
			}
			if err := d.wait(ctx, d.PollInterval, &res); err != nil {
				return res, err
			}
			next, gone, err := d.read(path)
			if err != nil || gone {
				return d.finish(res, gone, err)
			}
			if next != size {
				size = next
				stableFor = 0
				continue
			}
			stableFor += d.PollInterval

		case verification:
			if err := d.wait(ctx, d.VerifyFor, &res); err != nil {
				return res, err
			}
			next, gone, err := d.read(path)
			if err != nil || gone {
				return d.finish(res, gone, err)
			}
			if next == size {
				res.Outcome = Stable
				res.Size = size
				return res, nil
			}
			if d.MaxRestarts > 0 && res.Restarts >= d.MaxRestarts {
				logging.WarnWithContext(logger, "replay never settled; giving up", "stability_abandoned",
					logging.Int("restarts", res.Restarts),
					logging.Int64("size", next),
					logging.String(logging.FieldErrorHint, "raise stability.max_restarts if the game writes very slowly"),
					logging.String(logging.FieldImpact, "replay is not parsed until it is created again"))
				res.Outcome = Abandoned
				res.Size = next
				return res, nil
			}
			res.Restarts++
			logger.Debug("size changed during verification; restarting first pass",
				logging.Int64("before", size),
				logging.Int64("after", next),
				logging.Int("restarts", res.Restarts))
			size = next
			stableFor = 0
			state = firstPass
		}
	}
}

func (d *Detector) wait(ctx context.Context, dur time.Duration, res *Result) error {
	if dur <= 0 {
		return ctx.Err()
	}
	if err := d.sleep(ctx, dur); err != nil {
		return err
	}
	res.Waited += dur
	return nil
}

func (d *Detector) read(path string) (size int64, gone bool, err error) {
	size, err = d.stat(path)
	if err == nil {
		return size, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("stat %s: %w", path, err)
}

func (d *Detector) finish(res Result, gone bool, err error) (Result, error) {
	if err != nil {
		return res, err
	}
	if gone {
		res.Outcome = Disappeared
	}
	return res, nil
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
