package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recwatch/internal/logging"
	"recwatch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		path   bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			latest, err := logs.Latest(cfg.Paths.LogDir, logging.LogFilePattern)
			if err != nil {
				if errors.Is(err, logs.ErrNoLogs) {
					return fmt.Errorf("no run logs in %s yet; start the watcher with `recwatch run`", cfg.Paths.LogDir)
				}
				return err
			}
			out := cmd.OutOrStdout()
			if path {
				fmt.Fprintln(out, latest)
				return nil
			}

			tail, offset, err := logs.Last(latest, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, latest, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&path, "path", false, "Print the log file path only")
	return cmd
}
