package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"recwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// One replay directory is created and watched; stability windows are zero so
// tests settle on the first verification.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Dedup.Path = filepath.Join(cfgVal.Paths.StateDir, "processed_replays.json")
	cfgVal.History.Path = filepath.Join(cfgVal.Paths.StateDir, "history.db")
	cfgVal.Watch.ReplayDirectories = []string{filepath.Join(base, "replays")}
	cfgVal.Watch.PollingInterval = 0.02
	cfgVal.Stability.StableSeconds = 0
	cfgVal.Stability.VerificationSeconds = 0
	cfgVal.Stability.PollIntervalMillis = 10
	cfgVal.Parser.URL = "http://127.0.0.1:0/api/parse_replay"
	cfgVal.Parser.TimeoutSeconds = 120
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range builder.cfg.Watch.ReplayDirectories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir replay dir: %v", err)
		}
	}

	return builder.cfg
}

// WithParserURL points the config at a test parse server.
func WithParserURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Parser.URL = url
	}
}

// WithNativeEvents switches the watcher to fsnotify delivery.
func WithNativeEvents() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.UsePolling = false
	}
}

// WithReplayDirectories replaces the watched directories with n fresh ones.
func WithReplayDirectories(n int) ConfigOption {
	return func(b *configBuilder) {
		dirs := make([]string, 0, n)
		for i := 0; i < n; i++ {
			dirs = append(dirs, filepath.Join(b.baseDir, "replays", string(rune('a'+i))))
		}
		b.cfg.Watch.ReplayDirectories = dirs
	}
}

// WithHistoryDisabled turns off the sqlite dispatch ledger.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
