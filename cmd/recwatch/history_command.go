package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recwatch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatch outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.History.Enabled {
				return errors.New("dispatch history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No dispatches recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Outcome,
					e.Reason,
					statusCell(e.StatusCode),
					formatDuration(e.StabilityWait),
					formatDuration(e.ParseDuration),
					filepath.Base(e.Path),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Outcome", "Reason", "HTTP", "Settle", "Parse", "Replay"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintln(out, summarizeStats(stats))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show (0 for all)")
	return cmd
}

func statusCell(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func summarizeStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	total := 0
	for k, v := range stats {
		keys = append(keys, k)
		total += v
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, stats[k]))
	}
	return fmt.Sprintf("Total %d: %s", total, strings.Join(parts, ", "))
}
