package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"promptreel/internal/generation"
	"promptreel/internal/logging"
	"promptreel/internal/notifications"
	"promptreel/internal/tracker"
)

// interruptContext is done once SIGINT or SIGTERM arrives.
var interruptContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// startFunc queues generations on tr and returns what it started.
type startFunc func(ctx context.Context, tr *tracker.Tracker) ([]generation.Generation, error)

// runSession starts generations, renders progress until the active set is
// empty, and prints a summary. SIGINT or SIGTERM cancels every active
// generation.
func runSession(cmd *cobra.Command, ctx *commandContext, start startFunc, jsonOutput bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := ctx.client()
	if err != nil {
		return err
	}
	store, err := ctx.historyStore(cmd.Context())
	if err != nil {
		return err
	}
	logger := ctx.log()

	opts := append(tracker.OptionsFromConfig(cfg), tracker.WithLogger(logger))
	tr := tracker.New(client, store, opts...)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go tr.Run(runCtx)

	out := cmd.OutOrStdout()
	viewDone := make(chan struct{})
	if !jsonOutput {
		view := newProgressView(out)
		go func() {
			defer close(viewDone)
			view.consume(tr.Changes())
		}()
	} else {
		go func() {
			defer close(viewDone)
			for range tr.Changes() {
			}
		}()
	}

	sigCtx, stop := interruptContext(cmd.Context())
	defer stop()

	began := time.Now()
	started, startErr := start(runCtx, tr)

	interrupted := sigCtx.Err() != nil
	if !interrupted && len(started) > 0 {
		interrupted = tr.Wait(sigCtx) != nil
	}
	if interrupted {
		cancelled := tr.CancelAll()
		logger.Info("generations cancelled by signal", logging.Int("count", cancelled))
	}

	cancelRun()
	tr.Close()
	<-viewDone

	finished := tr.Finished()
	if !interrupted && len(finished) > 0 {
		notifySession(cmd.Context(), notifications.NewService(cfg), logger, finished, time.Since(began))
	}
	if jsonOutput {
		if err := writeJSONList(cmd, finished); err != nil {
			return err
		}
	} else if len(finished) > 0 {
		printSummary(cmd, tr.Counts(), finished)
	}

	switch {
	case interrupted:
		if !jsonOutput {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled by user")
		}
		return context.Canceled
	case startErr != nil:
		return startErr
	}
	if counts := tr.Counts(); counts.Failed > 0 {
		return fmt.Errorf("%d of %d generation(s) failed", counts.Failed, counts.Failed+counts.Completed)
	}
	return nil
}

func printSummary(cmd *cobra.Command, counts tracker.Counts, finished []generation.Generation) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Summary", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Active", statusInfo, fmt.Sprintf("%d", counts.Active), colorize))
	fmt.Fprintln(out, renderStatusLine("Completed", statusOK, fmt.Sprintf("%d", counts.Completed), colorize))
	failedKind := statusOK
	if counts.Failed > 0 {
		failedKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", counts.Failed), colorize))
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderGenerationTable(finished, time.Now()))
}

// notifySession publishes one message per finished generation plus a
// session summary.
// Delivery problems are logged and never fail the command.
func notifySession(ctx context.Context, svc notifications.Service, logger *slog.Logger, finished []generation.Generation, elapsed time.Duration) {
	if !notifications.Enabled(svc) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	completed, failed := 0, 0
	for _, gen := range finished {
		var err error
		switch gen.Status {
		case generation.StatusCompleted:
			completed++
			err = svc.NotifyGenerationCompleted(ctx, gen.Prompt, gen.VideoURL)
		case generation.StatusFailed:
			failed++
			err = svc.NotifyGenerationFailed(ctx, gen.Prompt, gen.Error)
		default:
			continue
		}
		if err != nil {
			logging.WarnWithContext(logger, "generation notification not delivered", "notification_failed",
				logging.String("generation_id", gen.ID), logging.Error(err))
		}
	}
	if err := svc.NotifySessionCompleted(ctx, completed, failed, elapsed); err != nil {
		logging.WarnWithContext(logger, "session notification not delivered", "notification_failed", logging.Error(err))
	}
}

func startErrors(errs []error) error {
	return errors.Join(errs...)
}
