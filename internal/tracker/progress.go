package tracker

import (
	"context"
	"time"

	"promptreel/internal/generation"
	"promptreel/internal/logging"
)

// Run advances simulated progress every tick interval until ctx is done.
// Progress produced here is cosmetic and never completes a generation.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.opts.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.advance()
		}
	}
}

// advance applies one random increment to each processing generation below
// the ceiling.
func (t *Tracker) advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.order {
		g, ok := t.active[id]
		if !ok || g.Status != generation.StatusProcessing || g.Progress >= progressCeiling {
			continue
		}
		step := t.opts.random() * t.opts.maxIncrement
		if step <= 0 {
			continue
		}
		g.Progress = min(g.Progress+step, progressCeiling)
		t.emitLocked(EventProgress, *g)
		if t.sampler.ShouldLog(id, g.Progress) {
			t.logger.Debug("generation progress",
				logging.String(logging.FieldGenerationID, id),
				logging.Float64("progress", g.Progress),
			)
		}
	}
}
