package kvstore

import (
	"context"
	"fmt"
	"strings"

	"promptreel/internal/config"
	"promptreel/internal/services"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrNotFound reports a missing key.
var ErrNotFound = fmt.Errorf("kvstore: key %w", services.ErrNotFound)

// Store is a byte-oriented key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend selected by cfg.History.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "kvstore", "open", "config is nil", nil)
	}
	h := cfg.History
	switch strings.ToLower(strings.TrimSpace(h.Backend)) {
	case "", BackendFile:
		return OpenFile(h.Path)
	case BackendSQLite:
		return OpenSQLite(ctx, h.Path)
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{Addr: h.RedisAddr, Password: h.RedisPassword, DB: h.RedisDB})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "kvstore", "open", fmt.Sprintf("unsupported backend %q", h.Backend), nil)
	}
}
