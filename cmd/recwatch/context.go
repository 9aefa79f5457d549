package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"recwatch/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, err := config.Load(path)
		c.configPath = resolved
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// optionalConfig loads the config when present and falls back to defaults
// when no file exists. Other load errors are returned.
func (c *commandContext) optionalConfig() (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, config.ErrConfigNotFound) {
		return nil, err
	}
	def := config.Default()
	return &def, nil
}

// ensureIdle fails when a daemon currently holds the state directory lock.
// The lock is released before returning.
func ensureIdle(cfg *config.Config) error {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("check daemon lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("recwatch is running (lock %s held); stop it first", cfg.LockPath())
	}
	return lock.Unlock()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
