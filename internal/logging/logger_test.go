package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recwatch/internal/config"
	"recwatch/internal/logging"
	"recwatch/internal/services"
)

func TestNewFromConfigWritesJSONRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, logPath, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(logPath), "recwatch-") {
		t.Fatalf("unexpected run log path %q", logPath)
	}
	logger.Info("watcher started", logging.String("mode", "polling"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", data, err)
	}
	if record["msg"] != "watcher started" || record["mode"] != "polling" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "dispatcher").Info("replay parsed", logging.String("replay_path", "/saves/a b.aoe2record"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if !strings.Contains(line, "INFO [dispatcher] replay parsed") {
		t.Fatalf("expected component and message in header, got %q", line)
	}
	if !strings.Contains(line, `replay_path="/saves/a b.aoe2record"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithReplayPath(context.Background(), "/saves/match.aoe2record")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, base).Info("dispatching")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, fragment := range []string{`"replay_path":"/saves/match.aoe2record"`, `"correlation_id":"req-9"`} {
		if !strings.Contains(string(content), fragment) {
			t.Fatalf("expected %s in %s", fragment, content)
		}
	}
}

func TestJSONRendersDurationsAsStrings(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "durations.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("parsed", logging.Duration("parse_duration", 1500*time.Millisecond))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"parse_duration":"1.5s"`) {
		t.Fatalf("expected string duration in %s", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "stat failed", "stat_failed", logging.String(logging.FieldImpact, "file skipped"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "stat_failed" {
		t.Fatalf("missing event type: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("missing error hint: %v", record)
	}
	if record[logging.FieldImpact] != "file skipped" {
		t.Fatalf("caller impact overwritten: %v", record)
	}
}

func TestTeeHandlerFansOutAndFiltersLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	if h := logging.TeeHandler(nil, infoHandler, nil); h != infoHandler {
		t.Fatal("expected single handler to be returned unwrapped")
	}
	if h := logging.TeeHandler(nil); h != slog.DiscardHandler {
		t.Fatal("expected DiscardHandler when every handler is nil")
	}

	logger := slog.New(logging.TeeHandler(infoHandler, debugHandler)).With(logging.String("component", "watcher"))
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "debug only") || !strings.Contains(debugBuf.String(), "both") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), `"component":"watcher"`) {
		t.Fatalf("attrs not propagated: %s", infoBuf.String())
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "recwatch-20200101T000000Z.log")
	recent := filepath.Join(dir, "recwatch-recent.log")
	active := filepath.Join(dir, "recwatch-active.log")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, recent, active, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := now.AddDate(0, 0, -40)
	for _, path := range []string{old, active, unrelated} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, logging.LogFilePattern, 30, active, now)
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{recent, active, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	if logging.CleanupOldLogs(nil, dir, logging.LogFilePattern, 0, "", now) != 0 {
		t.Fatal("retention 0 should disable pruning")
	}
}
