package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that promptreeld is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check against %s: %w", client.BaseURL(), err)
			}
			if jsonOutput {
				return writeJSON(cmd, health)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if health.Status != "healthy" {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Service", kind, health.Service+" "+health.Status, colorize))
			fmt.Fprintln(out, renderStatusLine("Models", statusInfo, strings.Join(health.Models, ", "), colorize))
			fmt.Fprintln(out, renderStatusLine("Formats", statusInfo, strings.Join(health.SupportedFormats, ", "), colorize))
			fmt.Fprintln(out, renderStatusLine("Max duration", statusInfo, strconv.Itoa(health.MaxDuration)+"s", colorize))
			fmt.Fprintln(out, renderStatusLine("Max prompt length", statusInfo, strconv.Itoa(health.MaxPromptLength), colorize))
			fmt.Fprintln(out, renderStatusLine("Timestamp", statusInfo, health.Timestamp, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the health document as JSON")
	return cmd
}
