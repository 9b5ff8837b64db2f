package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"promptreel/internal/generation"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <taskId>",
		Short: "Ask the provider for the state of an upstream task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := strings.TrimSpace(args[0])
			if taskID == "" {
				return errors.New("task id is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result := client.CheckStatus(cmd.Context(), taskID)
			if jsonOutput {
				return writeJSON(cmd, statusJSON{
					TaskID:        taskID,
					Status:        result.Status.String(),
					VideoURL:      result.VideoURL,
					Error:         result.Error,
					EstimatedTime: int(result.EstimatedTime.Seconds()),
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Task", statusInfo, taskID, colorize))
			fmt.Fprintln(out, renderStatusLine("Status", generationStatusKind(result.Status), result.Status.String(), colorize))
			switch result.Status {
			case generation.StatusCompleted:
				fmt.Fprintln(out, renderStatusLine("Video", statusOK, result.VideoURL, colorize))
			case generation.StatusProcessing:
				if result.EstimatedTime > 0 {
					fmt.Fprintln(out, renderStatusLine("Estimated", statusInfo, result.EstimatedTime.String(), colorize))
				}
			default:
				fmt.Fprintln(out, renderStatusLine("Error", statusError, result.Error, colorize))
			}
			if result.Failed() {
				return fmt.Errorf("task %s: %s", taskID, result.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	return cmd
}

type statusJSON struct {
	TaskID        string `json:"taskId"`
	Status        string `json:"status"`
	VideoURL      string `json:"videoUrl,omitempty"`
	Error         string `json:"error,omitempty"`
	EstimatedTime int    `json:"estimatedTime,omitempty"`
}
