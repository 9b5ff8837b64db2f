package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promptreel/internal/api"
	"promptreel/internal/generation"
	"promptreel/internal/logging"
	"promptreel/internal/services"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 4
	maxErrorBodyBytes     = 4 << 10
)

// HTTPConfig configures the REST backend.
type HTTPConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Models         []string
	TimeoutSeconds int
	// EstimatedTime is reported for queued tasks when the provider omits one.
	EstimatedTime time.Duration
}

// HTTPProvider implements Provider against a generic REST generation API.
type HTTPProvider struct {
	cfg        HTTPConfig
	httpClient *http.Client
	logger     *slog.Logger
	retry      retryPolicy
}

// Option customizes the HTTP provider.
type Option func(*HTTPProvider)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithRetryMaxAttempts sets the total number of status-check attempts.
func WithRetryMaxAttempts(attempts int) Option {
	return func(p *HTTPProvider) {
		p.retry.maxAttempts = attempts
	}
}

// WithRetryBackoff overrides the exponential backoff bounds.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(p *HTTPProvider) {
		p.retry.baseDelay = baseDelay
		p.retry.maxDelay = maxDelay
	}
}

// WithSleeper replaces the backoff sleep, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *HTTPProvider) {
		p.retry.sleep = sleeper
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *HTTPProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewHTTP constructs the REST backend.
func NewHTTP(cfg HTTPConfig, opts ...Option) *HTTPProvider {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	p := &HTTPProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "provider-http")
	return p
}

func (p *HTTPProvider) Name() string { return BackendHTTP }

func (p *HTTPProvider) Models() []string {
	if len(p.cfg.Models) > 0 {
		return append([]string(nil), p.cfg.Models...)
	}
	if p.cfg.Model != "" {
		return []string{p.cfg.Model}
	}
	return []string{}
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ErrorKind implements services.ErrorClassifier.
func (e *httpStatusError) ErrorKind() string { return "upstream" }

type submitPayload struct {
	Model       string `json:"model,omitempty"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Style       string `json:"style,omitempty"`
	Quality     string `json:"quality"`
}

type taskPayload struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	VideoURL      string `json:"video_url"`
	Error         string `json:"error"`
	EstimatedTime int    `json:"estimated_time"`
}

// Submit creates an upstream task. It is never retried.
func (p *HTTPProvider) Submit(ctx context.Context, req api.GenerateRequest) (Outcome, error) {
	payload := submitPayload{
		Model:       p.cfg.Model,
		Prompt:      req.Prompt,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Style:       req.Style,
		Quality:     req.Quality,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("provider submit: encode body: %w", err)
	}
	task, err := p.do(ctx, http.MethodPost, "generations", bytes.NewReader(encoded))
	if err != nil {
		return Outcome{}, fmt.Errorf("provider submit: %w", err)
	}
	outcome, err := p.toOutcome(task, "")
	if err != nil {
		return Outcome{}, fmt.Errorf("provider submit: %w", err)
	}
	p.logger.Info("provider accepted generation",
		logging.String(logging.FieldTaskID, outcome.TaskID),
		logging.String("status", outcome.Status.String()),
		logging.Int("duration", req.Duration),
	)
	return outcome, nil
}

// CheckStatus fetches the task, retrying transient failures.
func (p *HTTPProvider) CheckStatus(ctx context.Context, taskID string) (Outcome, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "provider", "check status", "task id required", nil)
	}
	attempts := p.retry.attempts()
	for attempt := 1; ; attempt++ {
		task, err := p.do(ctx, http.MethodGet, "generations/"+url.PathEscape(taskID), nil)
		if err == nil {
			outcome, convErr := p.toOutcome(task, taskID)
			if convErr != nil {
				return Outcome{}, fmt.Errorf("provider status: %w", convErr)
			}
			return outcome, nil
		}

		delay, transient := p.retry.next(err, attempt)
		if !transient {
			return Outcome{}, fmt.Errorf("provider status: %w", err)
		}
		if attempt >= attempts {
			return Outcome{}, fmt.Errorf("provider status: failed after %d attempts: %w", attempts, err)
		}
		logging.WarnWithContext(p.logger, "provider status check failed; retrying", "provider_status_retry",
			logging.String(logging.FieldTaskID, taskID),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "provider may be rate limiting or degraded"),
			logging.String(logging.FieldImpact, "status response delayed"),
		)
		if err := p.retry.wait(ctx, delay); err != nil {
			return Outcome{}, err
		}
	}
}

func (p *HTTPProvider) toOutcome(task taskPayload, fallbackID string) (Outcome, error) {
	taskID := strings.TrimSpace(task.ID)
	if taskID == "" {
		taskID = fallbackID
	}
	status, ok := mapStatus(task.Status)
	if !ok {
		switch {
		case strings.TrimSpace(task.VideoURL) != "":
			status = generation.StatusCompleted
		case strings.TrimSpace(task.Error) != "":
			status = generation.StatusFailed
		default:
			return Outcome{}, services.Wrap(services.ErrUpstream, "provider", "decode", fmt.Sprintf("unrecognized task status %q", task.Status), nil)
		}
	}
	switch status {
	case generation.StatusCompleted:
		return completedOrFailed(task.VideoURL, taskID), nil
	case generation.StatusFailed:
		msg := strings.TrimSpace(task.Error)
		if msg == "" {
			msg = "Generation failed"
		}
		return Outcome{Status: generation.StatusFailed, TaskID: taskID, Error: msg}, nil
	default:
		if taskID == "" {
			return Outcome{}, services.Wrap(services.ErrUpstream, "provider", "decode", "processing task without an id", nil)
		}
		estimated := p.cfg.EstimatedTime
		if task.EstimatedTime > 0 {
			estimated = time.Duration(task.EstimatedTime) * time.Second
		}
		return Outcome{Status: generation.StatusProcessing, TaskID: taskID, EstimatedTime: estimated}, nil
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body io.Reader) (taskPayload, error) {
	var task taskPayload
	if p.cfg.BaseURL == "" {
		return task, services.Wrap(services.ErrConfiguration, "provider", "request", "base_url is not configured", nil)
	}
	endpoint, err := url.JoinPath(p.cfg.BaseURL, path)
	if err != nil {
		return task, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return task, fmt.Errorf("new request: %w", err)
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return task, fmt.Errorf("http error (timeout=%s): %w", p.httpClient.Timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return task, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return task, services.Wrap(services.ErrUpstream, "provider", "decode", "invalid response body", err)
	}
	p.logger.Debug("provider request finished",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status_code", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	return task, nil
}
