package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"promptreel/internal/api"
	"promptreel/internal/generation"
	"promptreel/internal/genclient"
	"promptreel/internal/logging"
	"promptreel/internal/services"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("tracker closed")

// Submitter sends a generation request upstream. Implementations fold every
// failure into the returned result.
type Submitter interface {
	Submit(ctx context.Context, req api.GenerateRequest) genclient.Result
}

// HistoryStore receives generations once they reach a terminal status.
type HistoryStore interface {
	Save(ctx context.Context, g generation.Generation)
}

// Tracker tracks in-flight generations and records terminal ones.
type Tracker struct {
	client  Submitter
	history HistoryStore
	logger  *slog.Logger
	opts    options
	sampler *logging.ProgressSampler

	mu       sync.Mutex
	active   map[string]*generation.Generation
	order    []string
	finished []generation.Generation
	timers   map[string]*time.Timer
	idle     chan struct{}
	changes  chan Event
	closed   bool
	drained  bool

	wg sync.WaitGroup
}

// New constructs a tracker that submits through client and saves terminal
// generations to history.
func New(client Submitter, history HistoryStore, opts ...Option) *Tracker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	idle := make(chan struct{})
	close(idle)
	return &Tracker{
		client:  client,
		history: history,
		logger:  logging.NewComponentLogger(logger, "tracker"),
		opts:    o,
		sampler: logging.NewProgressSampler(10),
		active:  make(map[string]*generation.Generation),
		timers:  make(map[string]*time.Timer),
		idle:    idle,
		changes: make(chan Event, o.eventBuffer),
	}
}

// Start validates the prompt and settings, adds a processing generation to
// the active set and submits it in the background. The returned snapshot is
// the generation as it entered the active set.
func (t *Tracker) Start(ctx context.Context, prompt string, cfg generation.Config) (generation.Generation, error) {
	req := api.NewGenerateRequest(prompt, cfg).Normalized()
	if err := req.Validate(); err != nil {
		return generation.Generation{}, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return generation.Generation{}, ErrClosed
	}
	id := t.opts.newID()
	if _, exists := t.active[id]; exists {
		t.mu.Unlock()
		return generation.Generation{}, services.Wrap(services.ErrValidation, "tracker", "start", "duplicate generation id "+id, nil)
	}
	g := generation.New(id, req.Prompt, req.Config(), t.opts.now())
	if len(t.active) == 0 {
		t.idle = make(chan struct{})
	}
	t.active[id] = &g
	t.order = append(t.order, id)
	snapshot := g
	t.emitLocked(EventStarted, snapshot)
	t.wg.Add(1)
	t.mu.Unlock()

	t.logger.Info("generation started",
		logging.String(logging.FieldGenerationID, id),
		logging.String(logging.FieldEventType, "generation_started"),
		logging.Int("duration", req.Duration),
		logging.String("aspect_ratio", req.AspectRatio),
		logging.String("quality", req.Quality),
	)

	go t.submit(services.WithGenerationID(ctx, id), id, req)
	return snapshot, nil
}

// Retry resubmits the prompt and settings of g under a new id.
func (t *Tracker) Retry(ctx context.Context, g generation.Generation) (generation.Generation, error) {
	t.logger.Info("retrying generation",
		logging.String("previous_id", g.ID),
		logging.String(logging.FieldEventType, "generation_retry"),
	)
	return t.Start(ctx, g.Prompt, g.Config)
}

// Cancel fails a processing generation with the cancellation message. It
// reports false when id is unknown or already terminal. In-flight requests
// and timers for id are left to run and become no-ops.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	current, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	final := current.Fail(generation.CancelledByUser, t.opts.now())
	t.finishLocked(final)
	t.mu.Unlock()

	t.logger.Info("generation cancelled",
		logging.String(logging.FieldGenerationID, id),
		logging.String(logging.FieldEventType, "generation_cancelled"),
	)
	t.save(final)
	return true
}

// CancelAll cancels every active generation and returns how many were
// cancelled.
func (t *Tracker) CancelAll() int {
	cancelled := 0
	for _, g := range t.Active() {
		if t.Cancel(g.ID) {
			cancelled++
		}
	}
	return cancelled
}

func (t *Tracker) submit(ctx context.Context, id string, req api.GenerateRequest) {
	defer t.wg.Done()

	result := t.client.Submit(ctx, req)

	t.mu.Lock()
	current, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		t.logger.Debug("ignoring submission result for inactive generation",
			logging.String(logging.FieldGenerationID, id),
			logging.String("status", result.Status.String()),
		)
		return
	}

	switch result.Status {
	case generation.StatusCompleted:
		final := current.Complete(result.VideoURL, t.opts.now())
		final.TaskID = result.TaskID
		t.finishLocked(final)
		t.mu.Unlock()
		t.logTerminal(final)
		t.save(final)
	case generation.StatusProcessing:
		current.TaskID = result.TaskID
		t.emitLocked(EventSubmitted, *current)
		if !t.closed {
			t.timers[id] = time.AfterFunc(t.opts.completionDelay, func() { t.simulateCompletion(id) })
		}
		t.mu.Unlock()
		t.logger.Info("generation accepted by provider",
			logging.String(logging.FieldGenerationID, id),
			logging.String(logging.FieldTaskID, result.TaskID),
			logging.Duration("estimated_time", result.EstimatedTime),
		)
	default:
		msg := result.Error
		if msg == "" {
			msg = "Generation failed"
		}
		final := current.Fail(msg, t.opts.now())
		t.finishLocked(final)
		t.mu.Unlock()
		t.logTerminal(final)
		t.save(final)
	}
}

// simulateCompletion fires once per processing generation. The provider is
// never consulted.
func (t *Tracker) simulateCompletion(id string) {
	t.mu.Lock()
	delete(t.timers, id)
	current, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	final := current.Complete(t.opts.placeholderURL, t.opts.now())
	t.finishLocked(final)
	t.mu.Unlock()

	t.logTerminal(final)
	t.save(final)
}

// finishLocked removes g from the active set and records it. Callers hold mu
// and have verified membership.
func (t *Tracker) finishLocked(g generation.Generation) {
	delete(t.active, g.ID)
	for i, id := range t.order {
		if id == g.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.finished = append([]generation.Generation{g}, t.finished...)
	t.sampler.Forget(g.ID)

	eventType := EventCompleted
	if g.Status == generation.StatusFailed {
		eventType = EventFailed
	}
	t.emitLocked(eventType, g)
	if len(t.active) == 0 {
		close(t.idle)
	}
}

func (t *Tracker) save(g generation.Generation) {
	if t.history == nil {
		return
	}
	t.history.Save(context.Background(), g)
}

func (t *Tracker) logTerminal(g generation.Generation) {
	attrs := []logging.Attr{
		logging.String(logging.FieldGenerationID, g.ID),
		logging.String(logging.FieldTaskID, g.TaskID),
		logging.Duration("elapsed", g.Elapsed(t.opts.now())),
	}
	if g.Status == generation.StatusCompleted {
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "generation_completed"),
			logging.String("video_url", g.VideoURL),
		)
		t.logger.Info("generation completed", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.String("error", g.Error),
		logging.String(logging.FieldErrorHint, "retry the generation or check the proxy logs"),
	)
	logging.WarnWithContext(t.logger, "generation failed", "generation_failed", attrs...)
}

func (t *Tracker) emitLocked(eventType EventType, g generation.Generation) {
	if t.drained {
		return
	}
	select {
	case t.changes <- Event{Type: eventType, Generation: g}:
	default:
	}
}

// Changes delivers state changes. Events are dropped when the buffer is full,
// so consumers should treat them as hints and read snapshots for state. The
// channel is closed by Close.
func (t *Tracker) Changes() <-chan Event {
	return t.changes
}

// Active returns snapshots of the active set in start order.
func (t *Tracker) Active() []generation.Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]generation.Generation, 0, len(t.order))
	for _, id := range t.order {
		if g, ok := t.active[id]; ok {
			out = append(out, *g)
		}
	}
	return out
}

// Get returns the active or finished generation with id.
func (t *Tracker) Get(id string) (generation.Generation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if g, ok := t.active[id]; ok {
		return *g, true
	}
	for _, g := range t.finished {
		if g.ID == id {
			return g, true
		}
	}
	return generation.Generation{}, false
}

// Finished returns generations that reached a terminal status while this
// tracker ran, newest first.
func (t *Tracker) Finished() []generation.Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]generation.Generation(nil), t.finished...)
}

// Counts recomputes the active, completed and failed totals.
func (t *Tracker) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := Counts{Active: len(t.active)}
	for _, g := range t.finished {
		switch g.Status {
		case generation.StatusCompleted:
			counts.Completed++
		case generation.StatusFailed:
			counts.Failed++
		}
	}
	return counts
}

// Wait blocks until the active set is empty or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops pending completion timers, waits for in-flight submissions and
// closes the Changes channel. Generations still active stay active.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.mu.Unlock()

	t.wg.Wait()

	t.mu.Lock()
	t.drained = true
	close(t.changes)
	t.mu.Unlock()
}
