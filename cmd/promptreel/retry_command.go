package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"promptreel/internal/generation"
	"promptreel/internal/tracker"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Resubmit a past generation under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			original, err := findGeneration(store.Load(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			return runSession(cmd, ctx, func(runCtx context.Context, tr *tracker.Tracker) ([]generation.Generation, error) {
				g, err := tr.Retry(runCtx, original)
				if err != nil {
					return nil, err
				}
				return []generation.Generation{g}, nil
			}, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the new generation as JSON")
	return cmd
}

// findGeneration matches a full id or an unambiguous prefix.
func findGeneration(entries []generation.Generation, ref string) (generation.Generation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return generation.Generation{}, errors.New("generation id is required")
	}
	var matches []generation.Generation
	for _, g := range entries {
		if g.ID == ref {
			return g, nil
		}
		if strings.HasPrefix(g.ID, ref) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return generation.Generation{}, fmt.Errorf("generation %s not found in history", ref)
	case 1:
		return matches[0], nil
	default:
		return generation.Generation{}, fmt.Errorf("generation id %s is ambiguous (%d matches)", ref, len(matches))
	}
}
