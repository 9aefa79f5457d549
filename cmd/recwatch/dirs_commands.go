package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"recwatch/internal/catalog"
	"recwatch/internal/replay"
)

func newDirsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "dirs",
		Short:       "Show the directories that would be watched",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.optionalConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env := catalog.HostEnvironment()
			candidates := catalog.Resolve(env, cfg.Watch.ReplayDirectories)
			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintf(out, "No replay directories found for platform %q; set watch.replay_directories\n", env.Platform)
				return nil
			}
			rows := make([][]string, 0, len(candidates))
			for _, c := range candidates {
				source := "discovered"
				if c.Explicit {
					source = "config"
				}
				rows = append(rows, []string{c.Path, source, yesNo(c.Exists)})
			}
			fmt.Fprintln(out, renderTable([]string{"Directory", "Source", "Exists"}, rows, nil))
			return nil
		},
	}
}

func newMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "match <name>...",
		Short:       "Check file names against the final-replay pattern",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				name, err := replay.ParseName(arg)
				if err != nil {
					rows = append(rows, []string{filepath.Base(arg), "no", "", ""})
					continue
				}
				rows = append(rows, []string{
					filepath.Base(arg),
					"yes",
					name.Version,
					name.Started.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Final", "Version", "Started"}, rows, nil))
			return nil
		},
	}
}
