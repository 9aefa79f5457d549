package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recwatch/internal/config"
)

// LogFilePattern matches the per-run log files written into the log directory.
const LogFilePattern = "recwatch-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputWriter, err := openWriters(defaultSlice(opts.OutputPaths, []string{"stdout"}))
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(opts.Format, outputWriter, levelVar, opts.Development || level <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config. Console output
// follows logging.format; when a log directory is configured a JSON copy of
// every record is also written to a per-run file whose path is returned.
func NewFromConfig(cfg *config.Config) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		return logger, "", err
	}

	level := parseLevel(cfg.Logging.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	addSource := level <= slog.LevelDebug

	console, err := newHandler(cfg.Logging.Format, os.Stdout, levelVar, addSource)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return slog.New(console), "", nil
	}

	logPath := RunLogPath(cfg.Paths.LogDir, time.Now())
	fileWriter, err := openWriters([]string{logPath})
	if err != nil {
		return nil, "", err
	}
	fileHandler, err := newJSONHandler(fileWriter, levelVar, addSource)
	if err != nil {
		return nil, "", err
	}
	return slog.New(TeeHandler(console, fileHandler)), logPath, nil
}

// RunLogPath returns the log file used for a run starting at the given time.
func RunLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, "recwatch-"+started.UTC().Format("20060102T150405Z")+".log")
}

func newHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return newJSONHandler(w, lvl, addSource)
	case "console", "":
		return newPrettyHandler(w, lvl, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), value...)
}

func openWriters(paths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
