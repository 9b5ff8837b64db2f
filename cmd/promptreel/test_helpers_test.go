package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"promptreel/internal/config"
	"promptreel/internal/provider"
	"promptreel/internal/proxy"
	"promptreel/internal/testsupport"
)

const placeholderURL = "https://cdn.example/placeholder.mp4"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	submits    *atomic.Int32
}

// setupCLITestEnv runs a real proxy in front of a fake upstream. Prompts
// containing "fail" are rejected upstream and prompts containing "slow" are
// queued; everything else completes immediately.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	var submits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/generations":
			n := submits.Add(1)
			var body struct {
				Prompt string `json:"prompt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch {
			case strings.Contains(body.Prompt, "fail"):
				_, _ = w.Write([]byte(`{"id":"task-f","status":"failed","error":"content policy"}`))
			case strings.Contains(body.Prompt, "slow"):
				_, _ = w.Write([]byte(`{"id":"task-slow","status":"queued","estimated_time":30}`))
			default:
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":        "task-ok",
					"status":    "succeeded",
					"video_url": fmt.Sprintf("https://cdn.example/video-%d.mp4", n),
				})
			}
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/generations/"):
			id := strings.TrimPrefix(r.URL.Path, "/generations/")
			_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "status": "running", "estimated_time": 30})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithProviderURL(upstream.URL),
		testsupport.WithAPIToken("cli-secret"),
		testsupport.WithFastTracker(),
	)
	cfg.Tracker.PlaceholderVideoURL = placeholderURL

	p, err := provider.New(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("provider.New: %v", err)
	}
	srv, err := proxy.New(cfg, p, nil)
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}
	proxyServer := httptest.NewServer(srv.Handler())
	t.Cleanup(proxyServer.Close)
	cfg.Client.ProxyURL = proxyServer.URL

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, submits: &submits}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode(true)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
