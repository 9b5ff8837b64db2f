package preflight

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"promptreel/internal/config"
	"promptreel/internal/kvstore"
)

const (
	probeKey          = "promptreel.preflight"
	providerCheckWait = 5 * time.Second
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHistoryStore opens the configured backend and round-trips a probe key.
func CheckHistoryStore(ctx context.Context, cfg *config.Config) Result {
	name := "History store"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	name = fmt.Sprintf("History store (%s)", cfg.History.Backend)

	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer store.Close()

	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := store.Set(ctx, probeKey, want); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("write failed (%v)", err)}
	}
	got, err := store.Get(ctx, probeKey)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("read failed (%v)", err)}
	}
	if !bytes.Equal(got, want) {
		return Result{Name: name, Detail: "read back a different value"}
	}
	if err := store.Delete(ctx, probeKey); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cleanup failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "read/write ok"}
}

// CheckProvider verifies the provider settings. For the http backend any
// HTTP response from base_url counts as reachable; only transport failures
// fail the check.
func CheckProvider(ctx context.Context, cfg *config.Config) Result {
	const name = "Provider"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.ValidateProvider(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if cfg.Provider.Backend == "veo" {
		return Result{Name: name, Passed: true, Detail: "veo (API key configured)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, providerCheckWait)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, cfg.Provider.BaseURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	if cfg.Provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Provider.APIKey)
	}
	client := &http.Client{Timeout: providerCheckWait}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", cfg.Provider.BaseURL, err)}
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: fmt.Sprintf("%s rejected credentials (%d)", cfg.Provider.BaseURL, resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%d)", cfg.Provider.BaseURL, resp.StatusCode)}
	}
}
