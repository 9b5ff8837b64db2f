package main

import (
	"context"
	"errors"
	"testing"

	"promptreel/internal/generation"
)

func TestGenerateInterruptedWhileStartingCancelsBatch(t *testing.T) {
	env := setupCLITestEnv(t)

	// Deliver the interrupt before the batch finishes starting.
	previous := interruptContext
	interruptContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		return ctx, cancel
	}
	t.Cleanup(func() { interruptContext = previous })

	_, stderr, err := runCLI(t, env.configPath, "generate", "A slow sunset", "A slow sunrise")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if exitCode(err) != 130 {
		t.Fatalf("exit code = %d, want 130", exitCode(err))
	}
	requireContains(t, stderr, "Cancelled by user")

	entries := loadHistoryJSON(t, env)
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Status != generation.StatusFailed || entry.Error != generation.CancelledByUser {
			t.Fatalf("unexpected entry %+v", entry)
		}
	}
}
