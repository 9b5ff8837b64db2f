package generation

import (
	"strings"
	"time"
)

const (
	// MaxPromptLength is the maximum prompt length in characters.
	MaxPromptLength = 1000
	// MaxDuration is the longest supported clip in seconds.
	MaxDuration = 30

	QualityStandard = "standard"
	QualityHigh     = "high"

	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"

	DefaultStyle = "cinematic"
)

var (
	allowedDurations    = []int{5, 10, 15, 30}
	allowedAspectRatios = []string{AspectLandscape, AspectPortrait, AspectSquare}
	allowedQualities    = []string{QualityStandard, QualityHigh}
	supportedFormats    = []string{"mp4"}
)

// AllowedDurations returns the supported durations in seconds.
func AllowedDurations() []int {
	return append([]int(nil), allowedDurations...)
}

// AllowedAspectRatios returns the supported aspect ratios.
func AllowedAspectRatios() []string {
	return append([]string(nil), allowedAspectRatios...)
}

// AllowedQualities returns the supported quality levels.
func AllowedQualities() []string {
	return append([]string(nil), allowedQualities...)
}

// SupportedFormats lists the container formats results are delivered in.
func SupportedFormats() []string {
	return append([]string(nil), supportedFormats...)
}

// Config holds the user selected generation settings. It is treated as
// immutable once attached to a Generation.
type Config struct {
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspectRatio"`
	Style       string `json:"style"`
	Quality     string `json:"quality"`
}

// DefaultConfig returns the settings used when the user does not override
// them.
func DefaultConfig() Config {
	return Config{
		Duration:    10,
		AspectRatio: AspectLandscape,
		Style:       DefaultStyle,
		Quality:     QualityStandard,
	}
}

// Normalize trims free-form fields and fills an empty quality with the
// standard level. Duration and aspect ratio are left for Validate to judge.
func (c Config) Normalize() Config {
	c.AspectRatio = strings.TrimSpace(c.AspectRatio)
	c.Style = strings.TrimSpace(c.Style)
	c.Quality = strings.ToLower(strings.TrimSpace(c.Quality))
	if c.Quality == "" {
		c.Quality = QualityStandard
	}
	return c
}

// Generation is one user-initiated video creation attempt.
type Generation struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	Config      Config     `json:"config"`
	Status      Status     `json:"status"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
	TaskID      string     `json:"taskId,omitempty"`
}

// New constructs a processing generation at progress 0.
func New(id, prompt string, cfg Config, createdAt time.Time) Generation {
	return Generation{
		ID:        id,
		Prompt:    prompt,
		Config:    cfg,
		Status:    StatusProcessing,
		Progress:  0,
		CreatedAt: createdAt,
	}
}

// Complete returns a copy transitioned to completed with the given video URL.
func (g Generation) Complete(videoURL string, at time.Time) Generation {
	g.Status = StatusCompleted
	g.Progress = 100
	g.VideoURL = videoURL
	g.Error = ""
	g.CompletedAt = &at
	return g
}

// Fail returns a copy transitioned to failed with the given message.
func (g Generation) Fail(message string, at time.Time) Generation {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "Generation failed"
	}
	g.Status = StatusFailed
	g.Error = message
	g.VideoURL = ""
	g.CompletedAt = &at
	return g
}

// Elapsed reports how long the generation ran, or has been running when still
// processing.
func (g Generation) Elapsed(now time.Time) time.Duration {
	end := now
	if g.CompletedAt != nil {
		end = *g.CompletedAt
	}
	if g.CreatedAt.IsZero() || end.Before(g.CreatedAt) {
		return 0
	}
	return end.Sub(g.CreatedAt)
}
