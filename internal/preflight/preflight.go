package preflight

import (
	"context"
	"fmt"

	"recwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory holds the dedup file, history, and lock.
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir, true))

	for i, dir := range cfg.Watch.ReplayDirectories {
		results = append(results, CheckDirectoryAccess(fmt.Sprintf("Replay directory %d", i+1), dir, false))
	}

	results = append(results, CheckParser(ctx, cfg.Parser.URL))

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
