package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"recwatch/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch replay directories and dispatch new replays (foreground)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	addLogFlags(cmd, &opts)
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Dispatch replays already on disk that have no record, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			summary, err := daemonrun.Scan(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d replay(s), dispatched %d\n", summary.Found, summary.Queued)
			if len(summary.Outcomes) > 0 {
				keys := make([]string, 0, len(summary.Outcomes))
				for k := range summary.Outcomes {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					parts = append(parts, fmt.Sprintf("%s=%d", k, summary.Outcomes[k]))
				}
				fmt.Fprintf(out, "Outcomes: %s\n", strings.Join(parts, " "))
			}
			return nil
		},
	}
	addLogFlags(cmd, &opts)
	return cmd
}

func addLogFlags(cmd *cobra.Command, opts *daemonrun.Options) {
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "Override logging.format (console, json)")
}
