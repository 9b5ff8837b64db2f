package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"promptreel/internal/config"
	"promptreel/internal/notifications"
	"promptreel/internal/services"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("topic rejected"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newService(t *testing.T, topic string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := newService(t, "")
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without a topic")
	}
	if err := svc.NotifySessionCompleted(context.Background(), 1, 0, time.Second); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "generation completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyGenerationCompleted(context.Background(), "A sunset  over\nthe ocean", "https://cdn.example/a.mp4")
			},
			expectTitle:   "promptreel - Video Ready",
			expectMessage: "Video ready: A sunset over the ocean\nhttps://cdn.example/a.mp4",
			expectTags:    "promptreel,generation,completed",
		},
		{
			name: "generation failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyGenerationFailed(context.Background(), "A storm", "")
			},
			expectTitle:    "promptreel - Generation Failed",
			expectMessage:  "Failed: A storm\nunknown error",
			expectTags:     "promptreel,generation,failed",
			expectPriority: "high",
		},
		{
			name: "session completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionCompleted(context.Background(), 3, 0, 1500*time.Millisecond)
			},
			expectTitle:   "promptreel - Session Complete",
			expectMessage: "3 video(s) generated in 2s",
			expectTags:    "promptreel,session,completed",
		},
		{
			name: "session completed with errors",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionCompleted(context.Background(), 2, 1, 65*time.Second)
			},
			expectTitle:   "promptreel - Session Complete (with errors)",
			expectMessage: "2 succeeded, 1 failed in 1m5s",
			expectTags:    "promptreel,session,completed",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "promptreel - Test",
			expectMessage:  "Notification system test",
			expectTags:     "promptreel,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, requests := newNtfyServer(t, http.StatusOK)
			svc := newService(t, srv.URL)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notify: %v", err)
			}
			got := <-requests
			if got.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tc.expectTitle)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("message = %q, want %q", got.body, tc.expectMessage)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tc.expectTags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceTruncatesLongPrompts(t *testing.T) {
	srv, requests := newNtfyServer(t, http.StatusOK)
	svc := newService(t, srv.URL)
	if err := svc.NotifyGenerationCompleted(context.Background(), strings.Repeat("x", 200), ""); err != nil {
		t.Fatalf("notify: %v", err)
	}
	got := <-requests
	want := "Video ready: " + strings.Repeat("x", 77) + "..."
	if got.body != want {
		t.Fatalf("message = %q, want %q", got.body, want)
	}
}

func TestNtfyServiceReportsRejectedRequests(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusForbidden)
	svc := newService(t, srv.URL)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic rejected") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestNtfyServiceReportsUnreachableTopic(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	svc := newService(t, url)
	err := svc.TestNotification(context.Background())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}
