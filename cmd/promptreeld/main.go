// Command promptreeld runs the HTTP proxy between promptreel clients and the
// upstream video generation provider.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"promptreel/internal/config"
	"promptreel/internal/daemon"
	"promptreel/internal/logging"
	"promptreel/internal/preflight"
	"promptreel/internal/provider"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "promptreeld",
		Short:         "Video generation proxy daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), strings.TrimSpace(configPath), nil)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	return cmd
}

// run serves until ctx is done. ready, when set, receives the daemon once it
// is listening.
func run(ctx context.Context, configPath string, ready func(*daemon.Daemon)) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateProvider(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg, "promptreeld")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	for _, result := range preflight.RunAll(ctx, cfg, true) {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "requests depending on this check may fail"),
		)
	}

	p, err := provider.New(ctx, cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "create provider", "provider_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check provider.backend and credentials"),
		)
		return fmt.Errorf("create provider: %w", err)
	}

	d, err := daemon.New(cfg, p, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if ready != nil {
		ready(d)
	}

	<-ctx.Done()
	logger.Info("promptreeld shutting down")
	return nil
}
