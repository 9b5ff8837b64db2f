package tracker

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"promptreel/internal/config"
)

const (
	defaultTickInterval    = time.Second
	defaultMaxIncrement    = 10.0
	defaultCompletionDelay = 10 * time.Second
	defaultPlaceholderURL  = "https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"
	defaultEventBuffer     = 128

	// progressCeiling is the highest value the cosmetic ticker may reach.
	progressCeiling = 90.0
)

// Option configures optional Tracker behavior.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	tickInterval    time.Duration
	maxIncrement    float64
	completionDelay time.Duration
	placeholderURL  string
	random          func() float64
	now             func() time.Time
	newID           func() string
	eventBuffer     int
}

func defaultOptions() options {
	return options{
		tickInterval:    defaultTickInterval,
		maxIncrement:    defaultMaxIncrement,
		completionDelay: defaultCompletionDelay,
		placeholderURL:  defaultPlaceholderURL,
		random:          rand.Float64,
		now:             time.Now,
		newID:           uuid.NewString,
		eventBuffer:     defaultEventBuffer,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTickInterval sets how often Run advances simulated progress.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithMaxIncrement bounds a single progress step.
func WithMaxIncrement(v float64) Option {
	return func(o *options) {
		if v > 0 {
			o.maxIncrement = v
		}
	}
}

// WithCompletionDelay sets the delay before a processing generation is
// marked completed.
func WithCompletionDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.completionDelay = d
		}
	}
}

// WithPlaceholderURL sets the video URL recorded by simulated completions.
func WithPlaceholderURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.placeholderURL = url
		}
	}
}

// WithRand replaces the [0,1) source used for progress increments.
func WithRand(fn func() float64) Option {
	return func(o *options) {
		if fn != nil {
			o.random = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.now = fn
		}
	}
}

// WithIDGenerator replaces the generation id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithEventBuffer sizes the Changes channel.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.eventBuffer = n
		}
	}
}

// OptionsFromConfig maps the [tracker] section onto options.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithTickInterval(time.Duration(cfg.Tracker.TickIntervalMS) * time.Millisecond),
		WithMaxIncrement(cfg.Tracker.MaxIncrement),
		WithCompletionDelay(time.Duration(cfg.Tracker.CompletionDelaySeconds) * time.Second),
		WithPlaceholderURL(cfg.Tracker.PlaceholderVideoURL),
	}
}
