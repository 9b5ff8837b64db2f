package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHistoryStore(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithHistoryBackend(backend))
			result := CheckHistoryStore(context.Background(), cfg)
			if !result.Passed {
				t.Fatalf("expected pass, got: %s", result.Detail)
			}
			if !strings.Contains(result.Name, backend) {
				t.Fatalf("name %q should mention backend", result.Name)
			}
		})
	}
}

func TestCheckHistoryStore_UnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Backend = "tape"
	if result := CheckHistoryStore(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for unknown backend")
	}
}

func TestCheckProvider_Reachable(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithProviderURL(srv.URL))
	cfg.Provider.APIKey = "key"
	result := CheckProvider(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if auth != "Bearer key" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestCheckProvider_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithProviderURL(srv.URL))
	if result := CheckProvider(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for rejected credentials")
	}
}

func TestCheckProvider_MissingURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Provider.BaseURL = ""
	result := CheckProvider(context.Background(), cfg)
	if result.Passed || !strings.Contains(result.Detail, "provider.base_url") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckProvider_VeoNeedsKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Provider.Backend = "veo"
	if result := CheckProvider(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure without api key")
	}
	cfg.Provider.APIKey = "k"
	if result := CheckProvider(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected pass with api key, got %s", result.Detail)
	}
}

func TestRunAllAndFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg, false)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}

	cfg.Provider.BaseURL = ""
	results = RunAll(context.Background(), cfg, true)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Provider" {
		t.Fatalf("expected only provider failure, got %+v", failed)
	}
}
