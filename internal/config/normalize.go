package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeStability()
	c.normalizeParser()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Dedup.Path) == "" {
		c.Dedup.Path = filepath.Join(c.Paths.StateDir, defaultDedupFile)
	}
	if c.Dedup.Path, err = expandPath(c.Dedup.Path); err != nil {
		return fmt.Errorf("dedup.path: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

// normalizeWatch expands explicit replay directories and drops blanks and
// duplicates while preserving the configured order.
func (c *Config) normalizeWatch() error {
	if len(c.Watch.ReplayDirectories) == 0 {
		return nil
	}
	dirs := make([]string, 0, len(c.Watch.ReplayDirectories))
	seen := make(map[string]struct{}, len(c.Watch.ReplayDirectories))
	for _, dir := range c.Watch.ReplayDirectories {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("watch.replay_directories: %w", err)
		}
		if _, exists := seen[expanded]; exists {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	c.Watch.ReplayDirectories = dirs
	return nil
}

func (c *Config) normalizeStability() {
	if c.Stability.PollIntervalMillis <= 0 {
		c.Stability.PollIntervalMillis = defaultStabilityPollMillis
	}
}

func (c *Config) normalizeParser() {
	if c.Parser.URL == "" {
		if value, ok := os.LookupEnv("RECWATCH_PARSER_URL"); ok {
			c.Parser.URL = value
		}
	}
	c.Parser.URL = strings.TrimSpace(c.Parser.URL)
	if c.Parser.URL == "" {
		c.Parser.URL = defaultParserURL
	}
	if c.Parser.TimeoutSeconds == 0 {
		c.Parser.TimeoutSeconds = defaultParserTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("RECWATCH_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
