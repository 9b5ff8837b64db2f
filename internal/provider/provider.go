package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"promptreel/internal/api"
	"promptreel/internal/config"
	"promptreel/internal/generation"
	"promptreel/internal/services"
)

// Backend names accepted in provider.backend.
const (
	BackendHTTP = "http"
	BackendVeo  = "veo"
)

// Outcome is the normalized provider answer for a submission or status check.
type Outcome struct {
	Status        generation.Status
	VideoURL      string
	TaskID        string
	Error         string
	EstimatedTime time.Duration
}

// Provider submits generations upstream and reports their state.
type Provider interface {
	Name() string
	Models() []string
	Submit(ctx context.Context, req api.GenerateRequest) (Outcome, error)
	CheckStatus(ctx context.Context, taskID string) (Outcome, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "provider", "init", "config is nil", nil)
	}
	p := cfg.Provider
	estimated := time.Duration(p.EstimatedTimeSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(p.Backend)) {
	case "", BackendHTTP:
		return NewHTTP(HTTPConfig{
			BaseURL:        p.BaseURL,
			APIKey:         p.APIKey,
			Model:          p.Model,
			Models:         p.Models,
			TimeoutSeconds: p.TimeoutSeconds,
			EstimatedTime:  estimated,
		}, WithLogger(logger)), nil
	case BackendVeo:
		return NewVeo(ctx, VeoConfig{
			APIKey:        p.APIKey,
			Model:         p.Model,
			Models:        p.Models,
			EstimatedTime: estimated,
		}, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "provider", "init", fmt.Sprintf("unsupported backend %q", p.Backend), nil)
	}
}

// ToResponse reshapes an outcome into the proxy wire format.
func ToResponse(outcome Outcome) api.GenerateResponse {
	switch outcome.Status {
	case generation.StatusCompleted:
		return api.Completed(outcome.VideoURL)
	case generation.StatusProcessing:
		return api.Processing(outcome.TaskID, outcome.EstimatedTime)
	default:
		msg := outcome.Error
		if strings.TrimSpace(msg) == "" {
			msg = "Generation failed"
		}
		return api.Failed(msg, true)
	}
}

// Rejection reports whether err is the provider refusing a request with a
// 4xx answer, returning the provider's message. Timeouts and rate limits
// are not rejections.
func Rejection(err error) (string, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !isRejectionCode(statusErr.StatusCode) {
			return "", false
		}
		msg := strings.TrimSpace(statusErr.Body)
		if msg == "" {
			msg = http.StatusText(statusErr.StatusCode)
		}
		return msg, true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if !isRejectionCode(apiErr.Code) {
			return "", false
		}
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return msg, true
	}
	return "", false
}

func isRejectionCode(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}

// completedOrFailed guards against a completion that carries no video.
func completedOrFailed(videoURL, taskID string) Outcome {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return Outcome{Status: generation.StatusFailed, TaskID: taskID, Error: "provider reported completion without a video URL"}
	}
	return Outcome{Status: generation.StatusCompleted, VideoURL: videoURL, TaskID: taskID}
}
