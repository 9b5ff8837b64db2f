package api

import (
	"slices"
	"strings"
	"time"

	"promptreel/internal/generation"
)

// NewGenerateRequest builds the submission body for a prompt and its settings.
func NewGenerateRequest(prompt string, cfg generation.Config) GenerateRequest {
	return GenerateRequest{
		Prompt:      prompt,
		Duration:    cfg.Duration,
		AspectRatio: cfg.AspectRatio,
		Style:       cfg.Style,
		Quality:     cfg.Quality,
	}
}

// Config extracts the generation settings carried by the request.
func (r GenerateRequest) Config() generation.Config {
	return generation.Config{
		Duration:    r.Duration,
		AspectRatio: r.AspectRatio,
		Style:       r.Style,
		Quality:     r.Quality,
	}
}

// Normalized returns a copy with the prompt normalized and config defaults applied.
func (r GenerateRequest) Normalized() GenerateRequest {
	return NewGenerateRequest(generation.NormalizePrompt(r.Prompt), r.Config().Normalize())
}

// Validate normalizes the request and applies the boundary checks shared by
// the tracker and the proxy.
func (r GenerateRequest) Validate() error {
	n := r.Normalized()
	return generation.Validate(n.Prompt, n.Config())
}

// Completed builds a successful response carrying a finished video.
func Completed(videoURL string) GenerateResponse {
	return GenerateResponse{Success: true, Status: StatusCompleted, VideoURL: videoURL}
}

// Processing builds a successful response for a task still rendering upstream.
func Processing(taskID string, estimated time.Duration) GenerateResponse {
	return GenerateResponse{
		Success:       true,
		Status:        StatusProcessing,
		TaskID:        taskID,
		EstimatedTime: int(estimated.Round(time.Second) / time.Second),
	}
}

// Failed builds a failure response. Status is set only for provider-reported
// failures; transport failures leave it empty.
func Failed(message string, providerReported bool) GenerateResponse {
	resp := GenerateResponse{Success: false, Error: strings.TrimSpace(message)}
	if providerReported {
		resp.Status = StatusFailed
	}
	return resp
}

// NewHealthResponse describes the proxy and its accepted limits.
func NewHealthResponse(service string, models []string, now time.Time) HealthResponse {
	if models == nil {
		models = []string{}
	}
	return HealthResponse{
		Status:           HealthStatusHealthy,
		Service:          service,
		Timestamp:        FormatTimestamp(now),
		Models:           slices.Clone(models),
		SupportedFormats: generation.SupportedFormats(),
		MaxDuration:      generation.MaxDuration,
		MaxPromptLength:  generation.MaxPromptLength,
	}
}
