package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"recwatch/internal/config"
	"recwatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	replayDir  string
	parseCalls *atomic.Int32
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("RECWATCH_PARSER_URL", "")
	t.Setenv("RECWATCH_NTFY_TOPIC", "")
	cfg := testsupport.NewConfig(t, testsupport.WithParserURL(srv.URL+"/api/parse_replay"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		replayDir:  cfg.Watch.ReplayDirectories[0],
		parseCalls: calls,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	dirs := make([]string, 0, len(cfg.Watch.ReplayDirectories))
	for _, d := range cfg.Watch.ReplayDirectories {
		dirs = append(dirs, fmt.Sprintf("%q", d))
	}
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[watch]
replay_directories = [%s]
use_polling = true
polling_interval = 0.05

[stability]
stable_seconds = 0
verification_seconds = 0
poll_interval_ms = 10

[parser]
url = %q
timeout_seconds = 120

[logging]
level = "error"
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		strings.Join(dirs, ", "),
		cfg.Parser.URL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
