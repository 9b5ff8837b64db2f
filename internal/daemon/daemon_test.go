package daemon_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"promptreel/internal/api"
	"promptreel/internal/daemon"
	"promptreel/internal/provider"
	"promptreel/internal/testsupport"
)

type stubProvider struct{}

func (stubProvider) Name() string     { return "stub" }
func (stubProvider) Models() []string { return []string{"stub-video"} }

func (stubProvider) Submit(context.Context, api.GenerateRequest) (provider.Outcome, error) {
	return provider.Outcome{}, nil
}

func (stubProvider) CheckStatus(context.Context, string) (provider.Outcome, error) {
	return provider.Outcome{}, nil
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, stubProvider{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.Provider != "stub" || len(status.Models) != 1 {
		t.Fatalf("unexpected provider info: %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}

	resp, err := http.Get("http://" + status.Address + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped status")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, stubProvider{}, nil)
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	second, err := daemon.New(cfg, stubProvider{}, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected already running error, got %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start second after release: %v", err)
	}
}

func TestNewRequiresProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
}
