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

type generateFlags struct {
	duration    int
	aspectRatio string
	style       string
	quality     string
	json        bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <prompt> [prompt...]",
		Short: "Generate one video per prompt and wait for the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := generation.Config{
				Duration:    flags.duration,
				AspectRatio: flags.aspectRatio,
				Style:       flags.style,
				Quality:     flags.quality,
			}.Normalize()
			prompts := make([]string, 0, len(args))
			for _, arg := range args {
				if strings.TrimSpace(arg) != "" {
					prompts = append(prompts, arg)
				}
			}
			if len(prompts) == 0 {
				return errors.New("at least one non-empty prompt is required")
			}
			// Reject the whole batch before any network call.
			for i, prompt := range prompts {
				if err := generation.Validate(generation.NormalizePrompt(prompt), cfg); err != nil {
					return fmt.Errorf("prompt %d: %w", i+1, err)
				}
			}
			return runSession(cmd, ctx, func(runCtx context.Context, tr *tracker.Tracker) ([]generation.Generation, error) {
				started := make([]generation.Generation, 0, len(prompts))
				var errs []error
				for _, prompt := range prompts {
					g, err := tr.Start(runCtx, prompt, cfg)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					started = append(started, g)
				}
				return started, startErrors(errs)
			}, flags.json)
		},
	}

	defaults := generation.DefaultConfig()
	cmd.Flags().IntVarP(&flags.duration, "duration", "d", defaults.Duration, "Video duration in seconds ("+joinChoices(generation.AllowedDurations())+")")
	cmd.Flags().StringVarP(&flags.aspectRatio, "aspect-ratio", "a", defaults.AspectRatio, "Aspect ratio ("+joinChoices(generation.AllowedAspectRatios())+")")
	cmd.Flags().StringVarP(&flags.style, "style", "s", defaults.Style, "Visual style label")
	cmd.Flags().StringVarP(&flags.quality, "quality", "q", defaults.Quality, "Quality ("+joinChoices(generation.AllowedQualities())+")")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Output finished generations as JSON")
	return cmd
}

// joinChoices renders accepted flag values for help and error text.
func joinChoices[T any](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
