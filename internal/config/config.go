package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrConfigNotFound reports that no configuration document exists at the
// resolved location.
var ErrConfigNotFound = errors.New("configuration file not found")

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Watch contains directory monitoring configuration.
type Watch struct {
	ReplayDirectories []string `toml:"replay_directories"`
	UsePolling        bool     `toml:"use_polling"`
	PollingInterval   float64  `toml:"polling_interval"`
}

// Stability contains write-completion detection timing.
type Stability struct {
	StableSeconds       int `toml:"stable_seconds"`
	VerificationSeconds int `toml:"verification_seconds"`
	PollIntervalMillis  int `toml:"poll_interval_ms"`
	MaxRestarts         int `toml:"max_restarts"`
}

// Parser contains the downstream parse service endpoint.
type Parser struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Dedup contains processed-file state configuration.
type Dedup struct {
	Path string `toml:"path"`
}

// History contains dispatch ledger configuration.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Parsed         bool   `toml:"parsed"`
	Failed         bool   `toml:"failed"`
	// Started announces each run with the number of watched directories.
	Started bool `toml:"started"`
}

// Metrics contains the Prometheus listener configuration.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recwatch.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Watch: replay directories and event delivery mode
//   - Stability: size-polling windows and retry ceiling
//   - Parser: downstream parse service endpoint and timeout
//   - Dedup: processed-file state location
//   - History: sqlite dispatch ledger
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus listener
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Stability     Stability     `toml:"stability"`
	Parser        Parser        `toml:"parser"`
	Dedup         Dedup         `toml:"dedup"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file yields ErrConfigNotFound.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, resolvedPath, fmt.Errorf("%w at %s (create one with 'recwatch config init')", ErrConfigNotFound, resolvedPath)
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		return nil, resolvedPath, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, resolvedPath, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, err
	}

	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryRetention returns how long ledger rows are kept; zero keeps them forever.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "recwatch.lock")
}

// PollingInterval returns the directory polling cadence.
func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.Watch.PollingInterval * float64(time.Second))
}

// ParserTimeout returns the parse call deadline.
func (c *Config) ParserTimeout() time.Duration {
	return time.Duration(c.Parser.TimeoutSeconds) * time.Second
}

// StabilityWindows returns the first-pass window, the verification window,
// and the poll interval used by the stability detector.
func (c *Config) StabilityWindows() (stable, verify, poll time.Duration) {
	stable = time.Duration(c.Stability.StableSeconds) * time.Second
	verify = time.Duration(c.Stability.VerificationSeconds) * time.Second
	poll = time.Duration(c.Stability.PollIntervalMillis) * time.Millisecond
	return stable, verify, poll
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
