package testsupport

import (
	"path/filepath"
	"testing"

	"promptreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The proxy binds an ephemeral port and history uses the file backend.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Proxy.Bind = "127.0.0.1:0"
	cfgVal.Proxy.APIToken = ""
	cfgVal.Client.APIToken = ""
	cfgVal.Provider.BaseURL = "http://127.0.0.1:1"
	cfgVal.Provider.APIKey = ""
	cfgVal.History.Backend = "file"
	cfgVal.History.Path = filepath.Join(cfgVal.Paths.DataDir, "history.json")
	cfgVal.Client.ProxyURL = "http://127.0.0.1:1"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithHistoryBackend switches the history backend and points its path into
// the temp directory.
func WithHistoryBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Backend = backend
		if backend == "sqlite" {
			b.cfg.History.Path = filepath.Join(b.cfg.Paths.DataDir, "history.db")
		}
	}
}

// WithProxyURL points the client at a proxy, usually an httptest server.
func WithProxyURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Client.ProxyURL = url
	}
}

// WithProviderURL points the proxy at an upstream, usually an httptest server.
func WithProviderURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.BaseURL = url
	}
}

// WithAPIToken sets the shared bearer token on both proxy and client.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Proxy.APIToken = token
		b.cfg.Client.APIToken = token
	}
}

// WithFastTracker shortens tracker timings so CLI tests finish quickly.
func WithFastTracker() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.TickIntervalMS = 5
		b.cfg.Tracker.CompletionDelaySeconds = 1
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
