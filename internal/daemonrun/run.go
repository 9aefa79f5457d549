package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"recwatch/internal/config"
	"recwatch/internal/daemon"
	"recwatch/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel  string
	LogFormat string
}

// Run starts the recwatch daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newLogger(cfg, opts)
	if err != nil {
		return err
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, logging.LogFilePattern, cfg.Logging.RetentionDays, logPath, time.Now())
	logConfigSnapshot(logger, cfg, logPath)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Run(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check watch.replay_directories and the state directory lock"),
		)
		return err
	}
	return nil
}

// Scan dispatches the backlog of unrecorded replays once and returns the
// outcome counts. SIGINT abandons the files that have not started parsing.
func Scan(cmdCtx context.Context, cfg *config.Config, opts Options) (daemon.ScanSummary, error) {
	if cfg == nil {
		return daemon.ScanSummary{}, fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newLogger(cfg, opts)
	if err != nil {
		return daemon.ScanSummary{}, err
	}
	logConfigSnapshot(logger, cfg, logPath)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return daemon.ScanSummary{}, fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	return d.Scan(signalCtx)
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, string, error) {
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if format := strings.TrimSpace(opts.LogFormat); format != "" {
		cfg.Logging.Format = strings.ToLower(format)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, "", err
	}
	logger, logPath, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(os.Stderr, "warn: no log directory configured; logging to stdout only")
	}
	return logger, logPath, nil
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, logPath string) {
	if logger == nil || cfg == nil {
		return
	}
	stable, verify, poll := cfg.StabilityWindows()
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("state_dir", cfg.Paths.StateDir),
		logging.String("log_path", logPath),
		logging.Int("explicit_dirs", len(cfg.Watch.ReplayDirectories)),
		logging.Bool("use_polling", cfg.Watch.UsePolling),
		logging.Duration("polling_interval", cfg.PollingInterval()),
		logging.Duration("stable_for", stable),
		logging.Duration("verify_for", verify),
		logging.Duration("stability_poll", poll),
		logging.Int("max_restarts", cfg.Stability.MaxRestarts),
		logging.String("parser_url", cfg.Parser.URL),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("metrics_bind", cfg.Metrics.Bind),
	)
}
