package api

import "time"

// Response status values mirrored from the generation lifecycle.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// HealthStatusHealthy is the only status the proxy reports while serving.
const HealthStatusHealthy = "healthy"

// GenerateRequest is the body of POST /api/generate-video.
type GenerateRequest struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspectRatio"`
	Style       string `json:"style"`
	Quality     string `json:"quality"`
}

// GenerateResponse is returned by both the submission and status endpoints.
type GenerateResponse struct {
	Success       bool   `json:"success"`
	VideoURL      string `json:"videoUrl,omitempty"`
	Error         string `json:"error,omitempty"`
	TaskID        string `json:"taskId,omitempty"`
	Status        string `json:"status,omitempty"`
	EstimatedTime int    `json:"estimatedTime,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status           string   `json:"status"`
	Service          string   `json:"service"`
	Timestamp        string   `json:"timestamp"`
	Models           []string `json:"models"`
	SupportedFormats []string `json:"supportedFormats"`
	MaxDuration      int      `json:"maxDuration"`
	MaxPromptLength  int      `json:"maxPromptLength"`
}

// ErrorResponse is the generic error envelope for non-generation routes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FormatTimestamp renders t as RFC 3339 in UTC.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
