package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"promptreel/internal/generation"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage the generation history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryExportCommand(ctx))
	historyCmd.AddCommand(newHistoryImportCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show past generations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[generation.Status]struct{}, len(statusFilter))
			for _, raw := range statusFilter {
				status, ok := generation.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of: %s)", raw, joinChoices(generation.AllStatuses()))
				}
				filter[status] = struct{}{}
			}

			store, err := ctx.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			entries := store.Load(cmd.Context())
			if len(filter) > 0 {
				kept := entries[:0]
				for _, g := range entries {
					if _, ok := filter[g.Status]; ok {
						kept = append(kept, g)
					}
				}
				entries = kept
			}

			if jsonOutput {
				return writeJSONList(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No generations in history")
				return nil
			}
			fmt.Fprintln(out, renderGenerationTable(entries, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output history as JSON")
	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status ("+joinChoices(generation.AllStatuses())+")")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			store.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

func newHistoryExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			text, err := store.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export history: %w", err)
			}
			target := strings.TrimSpace(outputPath)
			if target == "" || target == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(target, []byte(text+"\n"), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported history to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (default stdout)")
	return cmd
}

func newHistoryImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the history with a previously exported list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			source := strings.TrimSpace(args[0])
			if source == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(source)
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			store, err := ctx.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			count, err := store.Import(cmd.Context(), string(data))
			if err != nil {
				return fmt.Errorf("import history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d generation(s)\n", count)
			return nil
		},
	}
}

func renderGenerationTable(entries []generation.Generation, now time.Time) string {
	columns := []column{
		{title: "ID"},
		{title: "Status"},
		{title: "Created"},
		{title: "Elapsed", alignRight: true},
		{title: "Settings"},
		{title: "Prompt"},
		{title: "Result"},
	}
	rows := make([][]string, 0, len(entries))
	for _, g := range entries {
		result := g.VideoURL
		if g.Status == generation.StatusFailed {
			result = g.Error
		}
		rows = append(rows, []string{
			shortID(g.ID),
			g.Status.String(),
			formatCreated(g.CreatedAt),
			g.Elapsed(now).Round(time.Second).String(),
			fmt.Sprintf("%ds %s %s", g.Config.Duration, g.Config.AspectRatio, g.Config.Quality),
			truncate(g.Prompt, 40),
			truncate(result, 60),
		})
	}
	return renderTable(columns, rows)
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
