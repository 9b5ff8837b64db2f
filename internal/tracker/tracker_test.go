package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"promptreel/internal/api"
	"promptreel/internal/generation"
	"promptreel/internal/genclient"
	"promptreel/internal/services"
	"promptreel/internal/testsupport"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []api.GenerateRequest
	result   genclient.Result

	gate     chan struct{}
	gateOnce sync.Once
}

func newFakeSubmitter(result genclient.Result, blocking bool) *fakeSubmitter {
	f := &fakeSubmitter{result: result}
	if blocking {
		f.gate = make(chan struct{})
	}
	return f
}

func (f *fakeSubmitter) Submit(_ context.Context, req api.GenerateRequest) genclient.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.result
}

func (f *fakeSubmitter) release() {
	if f.gate == nil {
		return
	}
	f.gateOnce.Do(func() { close(f.gate) })
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []generation.Generation
}

func (h *fakeHistory) Save(_ context.Context, g generation.Generation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append([]generation.Generation{g}, h.saved...)
}

func (h *fakeHistory) entries() []generation.Generation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]generation.Generation(nil), h.saved...)
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("gen-%d", n.Add(1))
	}
}

func newTestTracker(t *testing.T, sub *fakeSubmitter, hist HistoryStore, opts ...Option) *Tracker {
	t.Helper()
	base := []Option{
		WithIDGenerator(sequentialIDs()),
		WithCompletionDelay(20 * time.Millisecond),
		WithTickInterval(time.Hour),
	}
	tr := New(sub, hist, append(base, opts...)...)
	t.Cleanup(func() {
		sub.release()
		tr.Close()
	})
	return tr
}

func sunsetConfig() generation.Config {
	return generation.Config{Duration: 10, AspectRatio: "16:9", Style: "cinematic", Quality: "standard"}
}

func waitIdle(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v (active=%d)", err, len(tr.Active()))
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartAddsProcessingGeneration(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "task-1"}, true)
	tr := newTestTracker(t, sub, &fakeHistory{})

	g, err := tr.Start(context.Background(), "  A sunset  ", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if g.Status != generation.StatusProcessing || g.Progress != 0 {
		t.Fatalf("unexpected snapshot %+v", g)
	}
	if g.Prompt != "A sunset" {
		t.Fatalf("prompt = %q, want trimmed", g.Prompt)
	}
	active := tr.Active()
	if len(active) != 1 || active[0].ID != g.ID {
		t.Fatalf("active = %+v", active)
	}

	second, err := tr.Start(context.Background(), "A sunrise", sunsetConfig())
	if err != nil {
		t.Fatalf("Start second: %v", err)
	}
	if second.ID == g.ID {
		t.Fatalf("expected unique ids, both %q", g.ID)
	}
	if got := tr.Counts(); got != (Counts{Active: 2}) {
		t.Fatalf("counts = %+v", got)
	}
}

func TestSunsetScenarioCompletesWithPlaceholder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	hist := testsupport.MustOpenHistory(t, cfg)
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "task-1", EstimatedTime: time.Minute}, false)
	tr := newTestTracker(t, sub, hist, WithPlaceholderURL("https://cdn.example/placeholder.mp4"))

	g, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, tr)

	if len(tr.Active()) != 0 {
		t.Fatalf("expected empty active set")
	}
	entries := hist.Load(context.Background())
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.ID != g.ID || got.Status != generation.StatusCompleted {
		t.Fatalf("unexpected history entry %+v", got)
	}
	if got.VideoURL != "https://cdn.example/placeholder.mp4" || got.Error != "" {
		t.Fatalf("expected placeholder url only, got url=%q err=%q", got.VideoURL, got.Error)
	}
	if got.Progress != 100 || got.CompletedAt == nil {
		t.Fatalf("expected pinned progress and completion time, got %+v", got)
	}
	if got.TaskID != "task-1" {
		t.Fatalf("task id = %q", got.TaskID)
	}
	if counts := tr.Counts(); counts != (Counts{Completed: 1}) {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestImmediateCompletion(t *testing.T) {
	hist := &fakeHistory{}
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusCompleted, VideoURL: "https://cdn.example/v.mp4"}, false)
	tr := newTestTracker(t, sub, hist, WithCompletionDelay(time.Hour))

	if _, err := tr.Start(context.Background(), "A sunset", sunsetConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, tr)

	saved := hist.entries()
	if len(saved) != 1 || saved[0].VideoURL != "https://cdn.example/v.mp4" || saved[0].Progress != 100 {
		t.Fatalf("unexpected history %+v", saved)
	}
}

func TestSubmitFailureBecomesFailedGeneration(t *testing.T) {
	hist := &fakeHistory{}
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusFailed, Error: "network error: connection refused"}, false)
	tr := newTestTracker(t, sub, hist)

	if _, err := tr.Start(context.Background(), "A sunset", sunsetConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, tr)

	saved := hist.entries()
	if len(saved) != 1 {
		t.Fatalf("history entries = %d", len(saved))
	}
	if saved[0].Status != generation.StatusFailed || saved[0].Error != "network error: connection refused" || saved[0].VideoURL != "" {
		t.Fatalf("unexpected failed entry %+v", saved[0])
	}
	if counts := tr.Counts(); counts != (Counts{Failed: 1}) {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestStartRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		cfg    generation.Config
		field  string
	}{
		{name: "too long", prompt: strings.Repeat("a", 1001), cfg: sunsetConfig(), field: "prompt"},
		{name: "empty", prompt: "   ", cfg: sunsetConfig(), field: "prompt"},
		{name: "duration 7", prompt: "A sunset", cfg: generation.Config{Duration: 7, AspectRatio: "16:9", Quality: "standard"}, field: "duration"},
		{name: "aspect", prompt: "A sunset", cfg: generation.Config{Duration: 5, AspectRatio: "4:3", Quality: "standard"}, field: "aspectRatio"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := newFakeSubmitter(genclient.Result{Status: generation.StatusCompleted, VideoURL: "x"}, false)
			tr := newTestTracker(t, sub, &fakeHistory{})

			_, err := tr.Start(context.Background(), tc.prompt, tc.cfg)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *generation.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
			if len(tr.Active()) != 0 {
				t.Fatal("active set changed")
			}
			if sub.calls() != 0 {
				t.Fatalf("submitter called %d times", sub.calls())
			}
		})
	}
}

func TestCancelIgnoresLateSubmitResult(t *testing.T) {
	hist := &fakeHistory{}
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusCompleted, VideoURL: "https://cdn.example/late.mp4"}, true)
	tr := newTestTracker(t, sub, hist)

	g, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !tr.Cancel(g.ID) {
		t.Fatal("Cancel returned false for processing generation")
	}
	if tr.Cancel(g.ID) {
		t.Fatal("Cancel on terminal generation should be a no-op")
	}
	if tr.Cancel("missing") {
		t.Fatal("Cancel on unknown id should be a no-op")
	}

	sub.release()
	tr.Close()

	got, ok := tr.Get(g.ID)
	if !ok {
		t.Fatal("generation missing after cancel")
	}
	if got.Status != generation.StatusFailed || got.Error != generation.CancelledByUser || got.VideoURL != "" {
		t.Fatalf("late result resurrected generation: %+v", got)
	}
	if saved := hist.entries(); len(saved) != 1 || saved[0].Error != "Cancelled by user" {
		t.Fatalf("unexpected history %+v", saved)
	}
}

func TestCancelIgnoresSimulatedCompletion(t *testing.T) {
	hist := &fakeHistory{}
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "task-1"}, false)
	tr := newTestTracker(t, sub, hist, WithCompletionDelay(40*time.Millisecond))

	g, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "task id", func() bool {
		current, ok := tr.Get(g.ID)
		return ok && current.TaskID == "task-1"
	})
	if !tr.Cancel(g.ID) {
		t.Fatal("Cancel returned false")
	}
	time.Sleep(80 * time.Millisecond)

	got, _ := tr.Get(g.ID)
	if got.Status != generation.StatusFailed {
		t.Fatalf("simulated completion overwrote cancel: %+v", got)
	}
	if saved := hist.entries(); len(saved) != 1 {
		t.Fatalf("history entries = %d, want 1", len(saved))
	}
}

func TestCancelAll(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "t"}, true)
	tr := newTestTracker(t, sub, &fakeHistory{})

	for _, prompt := range []string{"one", "two", "three"} {
		if _, err := tr.Start(context.Background(), prompt, sunsetConfig()); err != nil {
			t.Fatalf("Start %s: %v", prompt, err)
		}
	}
	if n := tr.CancelAll(); n != 3 {
		t.Fatalf("CancelAll = %d, want 3", n)
	}
	waitIdle(t, tr)
	if counts := tr.Counts(); counts != (Counts{Failed: 3}) {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestRetryUsesNewID(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusFailed, Error: "boom"}, false)
	tr := newTestTracker(t, sub, &fakeHistory{})

	first, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, tr)
	failed, _ := tr.Get(first.ID)

	retried, err := tr.Retry(context.Background(), failed)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.ID == first.ID {
		t.Fatal("retry reused the failed id")
	}
	if retried.Prompt != first.Prompt || retried.Config != first.Config {
		t.Fatalf("retry changed prompt/config: %+v vs %+v", retried, first)
	}
	if retried.Status != generation.StatusProcessing || retried.Progress != 0 {
		t.Fatalf("unexpected retry snapshot %+v", retried)
	}
}

func TestAdvanceCapsAtCeiling(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "t"}, true)
	tr := newTestTracker(t, sub, &fakeHistory{}, WithRand(func() float64 { return 1 }), WithMaxIncrement(40))

	g, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []float64{40, 80, 90, 90}
	prev := 0.0
	for i, expected := range want {
		tr.advance()
		got, _ := tr.Get(g.ID)
		if got.Progress != expected {
			t.Fatalf("tick %d progress = %v, want %v", i+1, got.Progress, expected)
		}
		if got.Progress < prev {
			t.Fatalf("progress decreased from %v to %v", prev, got.Progress)
		}
		if got.Status != generation.StatusProcessing {
			t.Fatalf("ticker changed status to %s", got.Status)
		}
		prev = got.Progress
	}
}

func TestRunAdvancesProgress(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusProcessing, TaskID: "t"}, true)
	tr := newTestTracker(t, sub, &fakeHistory{}, WithTickInterval(5*time.Millisecond), WithRand(func() float64 { return 0.5 }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	g, err := tr.Start(context.Background(), "A sunset", sunsetConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "progress", func() bool {
		current, _ := tr.Get(g.ID)
		return current.Progress > 0
	})
}

func TestChangesReportsLifecycle(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{Status: generation.StatusCompleted, VideoURL: "https://cdn.example/v.mp4"}, false)
	tr := New(sub, &fakeHistory{}, WithIDGenerator(sequentialIDs()))

	if _, err := tr.Start(context.Background(), "A sunset", sunsetConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitIdle(t, tr)
	tr.Close()

	var types []EventType
	for ev := range tr.Changes() {
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != EventStarted || types[1] != EventCompleted {
		t.Fatalf("events = %v", types)
	}
}

func TestStartAfterClose(t *testing.T) {
	sub := newFakeSubmitter(genclient.Result{}, false)
	tr := New(sub, &fakeHistory{})
	tr.Close()
	if _, err := tr.Start(context.Background(), "A sunset", sunsetConfig()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tracker.TickIntervalMS = 250
	cfg.Tracker.MaxIncrement = 5
	cfg.Tracker.CompletionDelaySeconds = 3
	cfg.Tracker.PlaceholderVideoURL = "https://cdn.example/p.mp4"

	o := defaultOptions()
	for _, opt := range OptionsFromConfig(cfg) {
		opt(&o)
	}
	if o.tickInterval != 250*time.Millisecond || o.maxIncrement != 5 || o.completionDelay != 3*time.Second || o.placeholderURL != "https://cdn.example/p.mp4" {
		t.Fatalf("unexpected options %+v", o)
	}
}
