package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateStability(); err != nil {
		return err
	}
	if err := c.validateParser(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.PollingInterval <= 0 {
		return errors.New("watch.polling_interval must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateStability() error {
	if err := ensureNonNegativeMap(map[string]int{
		"stability.stable_seconds":       c.Stability.StableSeconds,
		"stability.verification_seconds": c.Stability.VerificationSeconds,
		"history.retention_days":         c.History.RetentionDays,
	}); err != nil {
		return err
	}
	if c.Stability.PollIntervalMillis <= 0 {
		return errors.New("stability.poll_interval_ms must be positive")
	}
	if c.Stability.MaxRestarts < 0 {
		return errors.New("stability.max_restarts must be >= 0 (0 retries forever)")
	}
	return nil
}

func (c *Config) validateParser() error {
	parsed, err := url.Parse(c.Parser.URL)
	if err != nil {
		return fmt.Errorf("parser.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("parser.url must use http or https, got %q", c.Parser.URL)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("parser.url must include a host, got %q", c.Parser.URL)
	}
	if c.Parser.TimeoutSeconds < minParserTimeoutSeconds {
		return fmt.Errorf("parser.timeout_seconds must be >= %d", minParserTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
