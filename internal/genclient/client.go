package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	defaultTimeout    = 30 * time.Second
	generatePath      = "api/generate-video"
	healthPath        = "api/health"
	maxErrorBodyBytes = 4 << 10
)

// Result is the normalized outcome of a submission or status check.
type Result struct {
	Status        generation.Status
	VideoURL      string
	TaskID        string
	Error         string
	EstimatedTime time.Duration
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool {
	return r.Status == generation.StatusFailed
}

func failure(format string, args ...any) Result {
	return Result{Status: generation.StatusFailed, Error: fmt.Sprintf(format, args...)}
}

// Client calls the proxy's generation and health endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent to the proxy.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for the proxy at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "genclient")
	return c
}

// BaseURL returns the proxy address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts a generation request. The request is expected to be validated
// by the caller.
func (c *Client) Submit(ctx context.Context, req api.GenerateRequest) Result {
	body, err := json.Marshal(req)
	if err != nil {
		return failure("invalid request: %v", err)
	}
	result := c.call(ctx, http.MethodPost, generatePath, nil, body)
	c.logResult(ctx, "submit", result)
	return result
}

// CheckStatus asks the proxy for the state of an upstream task.
func (c *Client) CheckStatus(ctx context.Context, taskID string) Result {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return failure("task id is required")
	}
	result := c.call(ctx, http.MethodGet, generatePath, url.Values{"taskId": {taskID}}, nil)
	if result.TaskID == "" && !result.Failed() {
		result.TaskID = taskID
	}
	c.logResult(ctx, "check_status", result)
	return result
}

// Health fetches the proxy's service metadata.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "genclient", "health", "proxy unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUpstream, "genclient", "health",
			fmt.Sprintf("status %d: %s", resp.StatusCode, readErrorMessage(resp.Body)), nil)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "genclient", "health", "invalid response", err)
	}
	return &health, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body []byte) Result {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return failure("request cancelled")
		}
		return failure("network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := readErrorMessage(resp.Body)
		if msg == "" {
			return failure("request failed with status %d", resp.StatusCode)
		}
		return failure("request failed with status %d: %s", resp.StatusCode, msg)
	}

	var payload api.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure("invalid response: %v", err)
	}
	return fromResponse(payload)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, errors.New("proxy url is not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	return c.httpClient.Do(req)
}

func (c *Client) logResult(ctx context.Context, operation string, result Result) {
	logger := logging.WithContext(ctx, c.logger)
	if result.Failed() {
		logging.WarnWithContext(logger, "proxy request failed", "genclient_"+operation+"_failed",
			logging.String("error", result.Error),
			logging.String(logging.FieldImpact, "generation marked failed"),
		)
		return
	}
	logger.Debug("proxy request finished",
		logging.String("operation", operation),
		logging.String("status", result.Status.String()),
		logging.String(logging.FieldTaskID, result.TaskID),
	)
}

func fromResponse(payload api.GenerateResponse) Result {
	videoURL := strings.TrimSpace(payload.VideoURL)
	taskID := strings.TrimSpace(payload.TaskID)
	if !payload.Success {
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = "Generation failed"
		}
		return Result{Status: generation.StatusFailed, Error: msg, TaskID: taskID}
	}
	estimated := time.Duration(payload.EstimatedTime) * time.Second
	status, ok := generation.ParseStatus(payload.Status)
	if !ok {
		switch {
		case videoURL != "":
			status = generation.StatusCompleted
		case taskID != "":
			status = generation.StatusProcessing
		default:
			return failure("invalid response: unknown status %q", payload.Status)
		}
	}
	switch status {
	case generation.StatusCompleted:
		if videoURL == "" {
			return failure("invalid response: completed without a video url")
		}
		return Result{Status: status, VideoURL: videoURL, TaskID: taskID}
	case generation.StatusProcessing:
		return Result{Status: status, TaskID: taskID, EstimatedTime: estimated}
	default:
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = "Generation failed"
		}
		return Result{Status: generation.StatusFailed, Error: msg, TaskID: taskID}
	}
}

func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		return strings.TrimSpace(envelope.Error)
	}
	return strings.TrimSpace(string(raw))
}
