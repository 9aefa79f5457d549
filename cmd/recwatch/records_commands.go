package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"recwatch/internal/dedup"
	"recwatch/internal/logging"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and edit processed-replay records",
	}
	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsForgetCommand(ctx))
	recordsCmd.AddCommand(newRecordsClearCommand(ctx))
	return recordsCmd
}

func openRecords(ctx *commandContext) (*dedup.FileStore, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return dedup.NewFileStore(cfg.Dedup.Path, logging.NewNop()), nil
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processed replays, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRecords(ctx)
			if err != nil {
				return err
			}
			entries := store.Records()
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No processed replays recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				path := e.Path
				if !full {
					path = filepath.Base(path)
				}
				rows = append(rows, []string{
					e.Record.ObservedAt.Local().Format("2006-01-02 15:04:05"),
					e.Record.Outcome,
					path,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Observed", "Outcome", "Replay"}, rows, nil))
			fmt.Fprintf(out, "%d record(s) in %s\n", len(entries), store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Show full paths")
	return cmd
}

func newRecordsForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <path>...",
		Short: "Remove records so the replays are parsed again on the next event or scan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := ensureIdle(cfg); err != nil {
				return err
			}
			store, err := openRecords(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var missing int
			for _, path := range args {
				if err := store.Forget(path); err != nil {
					if errors.Is(err, dedup.ErrNotRecorded) {
						fmt.Fprintf(out, "Not recorded: %s\n", path)
						missing++
						continue
					}
					return err
				}
				fmt.Fprintf(out, "Forgot %s\n", dedup.Key(path))
			}
			if missing == len(args) {
				return errors.New("no matching records")
			}
			return nil
		},
	}
}

func newRecordsClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every processed-replay record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear records without --yes")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := ensureIdle(cfg); err != nil {
				return err
			}
			store, err := openRecords(ctx)
			if err != nil {
				return err
			}
			count := store.Count()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d record(s)\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing all records")
	return cmd
}
