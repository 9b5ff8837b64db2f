package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type ntfyRecorder struct {
	mu       sync.Mutex
	titles   []string
	messages []string
}

func (r *ntfyRecorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...), append([]string(nil), r.messages...)
}

func newNtfyRecorder(t *testing.T) (*ntfyRecorder, string) {
	t.Helper()
	rec := &ntfyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.titles = append(rec.titles, r.Header.Get("Title"))
		rec.messages = append(rec.messages, string(body))
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return rec, srv.URL
}

func TestGenerateSendsSessionNotifications(t *testing.T) {
	env := setupCLITestEnv(t)
	rec, topic := newNtfyRecorder(t)
	env.cfg.Notifications.NtfyTopic = topic
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, env.configPath, "generate", "A sunset", "this will fail")
	if err == nil {
		t.Fatal("expected failure summary error")
	}

	titles, messages := rec.snapshot()
	if len(titles) != 3 {
		t.Fatalf("notifications = %d, want 3 (%v)", len(titles), titles)
	}
	// Per-generation messages arrive in completion order; the summary is last.
	byTitle := map[string]string{titles[0]: messages[0], titles[1]: messages[1]}
	if msg, ok := byTitle["promptreel - Video Ready"]; !ok || !strings.Contains(msg, "A sunset") || !strings.Contains(msg, "https://cdn.example/video-") {
		t.Fatalf("unexpected completion notification in %v / %v", titles, messages)
	}
	if msg, ok := byTitle["promptreel - Generation Failed"]; !ok || !strings.Contains(msg, "content policy") {
		t.Fatalf("unexpected failure notification in %v / %v", titles, messages)
	}
	if titles[2] != "promptreel - Session Complete (with errors)" || !strings.HasPrefix(messages[2], "1 succeeded, 1 failed") {
		t.Fatalf("unexpected summary notification %q / %q", titles[2], messages[2])
	}
}

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	requireContains(t, stdout, "Notifications disabled")

	rec, topic := newNtfyRecorder(t)
	env.cfg.Notifications.NtfyTopic = topic
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err = runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "Test notification sent")
	if titles, _ := rec.snapshot(); len(titles) != 1 || titles[0] != "promptreel - Test" {
		t.Fatalf("unexpected notifications %v", titles)
	}
}
