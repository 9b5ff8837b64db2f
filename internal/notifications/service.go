package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promptreel/internal/config"
	"promptreel/internal/services"
)

const userAgent = "promptreel/0.1"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyGenerationCompleted(ctx context.Context, prompt, videoURL string) error
	NotifyGenerationFailed(ctx context.Context, prompt, message string) error
	NotifySessionCompleted(ctx context.Context, completed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyGenerationCompleted(ctx context.Context, prompt, videoURL string) error {
	message := fmt.Sprintf("Video ready: %s", summarizePrompt(prompt))
	if videoURL = strings.TrimSpace(videoURL); videoURL != "" {
		message = fmt.Sprintf("%s\n%s", message, videoURL)
	}
	return n.send(ctx, payload{
		title:   "promptreel - Video Ready",
		message: message,
		tags:    []string{"promptreel", "generation", "completed"},
	})
}

func (n *ntfyService) NotifyGenerationFailed(ctx context.Context, prompt, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "promptreel - Generation Failed",
		message:  fmt.Sprintf("Failed: %s\n%s", summarizePrompt(prompt), message),
		tags:     []string{"promptreel", "generation", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifySessionCompleted(ctx context.Context, completed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "promptreel - Session Complete"
	message := fmt.Sprintf("%d video(s) generated in %s", completed, duration)
	if failed > 0 {
		title = "promptreel - Session Complete (with errors)"
		message = fmt.Sprintf("%d succeeded, %d failed in %s", completed, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"promptreel", "session", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "promptreel - Test",
		message:  "Notification system test",
		tags:     []string{"promptreel", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "build request", "Invalid ntfy topic", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "send", "ntfy unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrUpstream, "notifications", "send",
			fmt.Sprintf("ntfy returned %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func summarizePrompt(prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	const limit = 80
	runes := []rune(prompt)
	if len(runes) <= limit {
		return prompt
	}
	return string(runes[:limit-3]) + "..."
}

type noopService struct{}

func (noopService) NotifyGenerationCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyGenerationFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifySessionCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
