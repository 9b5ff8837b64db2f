package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps every key in one JSON object on disk. Writers take an
// exclusive flock on <path>.lock so concurrent processes do not interleave
// read-modify-write cycles.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// OpenFile returns a file-backed store. The file is created lazily on the
// first Set.
func OpenFile(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("kvstore: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx, false); err != nil {
		return nil, err
	}
	defer s.lock.Unlock() //nolint:errcheck

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(value), nil
}

// Set stores value under key. A store file that cannot be parsed is replaced.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	return s.update(ctx, func(entries map[string]string) {
		entries[key] = string(value)
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(entries map[string]string) {
		delete(entries, key)
	})
}

// Close releases the lock handle.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) update(ctx context.Context, mutate func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx, true); err != nil {
		return err
	}
	defer s.lock.Unlock() //nolint:errcheck

	entries, err := s.read()
	if err != nil {
		entries = make(map[string]string)
	}
	mutate(entries)
	return s.write(entries)
}

func (s *FileStore) acquire(ctx context.Context, exclusive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock store file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store file: %s is busy", s.lock.Path())
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	entries := make(map[string]string)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
