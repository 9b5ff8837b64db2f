package testsupport

import (
	"context"
	"testing"
	"time"

	"promptreel/internal/config"
	"promptreel/internal/generation"
	"promptreel/internal/history"
	"promptreel/internal/kvstore"
)

// MustOpenHistory opens the configured history store and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	kv, err := kvstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = kv.Close()
	})
	return history.New(kv, cfg.History.Key, nil)
}

// Completed builds a completed generation created at the given time.
func Completed(id, prompt string, createdAt time.Time) generation.Generation {
	g := generation.New(id, prompt, generation.DefaultConfig(), createdAt)
	return g.Complete("https://cdn.example/"+id+".mp4", createdAt.Add(30*time.Second))
}

// Failed builds a failed generation created at the given time.
func Failed(id, prompt, message string, createdAt time.Time) generation.Generation {
	g := generation.New(id, prompt, generation.DefaultConfig(), createdAt)
	return g.Fail(message, createdAt.Add(5*time.Second))
}
