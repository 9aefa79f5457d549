package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"recwatch/internal/dedup"
	"recwatch/internal/logging"
	"recwatch/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, the parse service, and daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Daemon")
			report.row("Config", stateInfo, ctx.configPath)
			if daemonRunning(cfg.LockPath()) {
				report.row("Daemon", stateOK, "running")
			} else {
				report.row("Daemon", stateWarn, "not running")
			}
			store := dedup.NewFileStore(cfg.Dedup.Path, logging.NewNop())
			report.row("Processed replays", stateInfo, fmt.Sprintf("%d", store.Count()))
			mode := "native"
			if cfg.Watch.UsePolling {
				mode = fmt.Sprintf("polling every %s", cfg.PollingInterval())
			}
			report.row("Watch mode", stateInfo, mode)

			report.section("Checks")
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				state := stateOK
				if !r.Passed {
					state = stateFail
				}
				report.row(r.Name, state, r.Detail)
			}

			fmt.Fprintln(out, report)
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func daemonRunning(lockPath string) bool {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}
