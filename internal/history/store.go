package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"promptreel/internal/generation"
	"promptreel/internal/kvstore"
	"promptreel/internal/logging"
	"promptreel/internal/services"
)

// MaxEntries caps the persisted list; the oldest entries are evicted first.
const MaxEntries = 50

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "promptreel.history"

// ErrNotList is returned by Import when the input is valid JSON but not a list.
var ErrNotList = fmt.Errorf("%w: history import must be a JSON list", services.ErrValidation)

// Store reads and writes the history list through a key-value backend.
type Store struct {
	kv     kvstore.Store
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

// New constructs a Store over kv. An empty key uses DefaultKey.
func New(kv kvstore.Store, key string, logger *slog.Logger) *Store {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:     kv,
		key:    key,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Save prepends g and truncates the list to MaxEntries. An older entry with
// the same id is replaced.
func (s *Store) Save(ctx context.Context, g generation.Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(ctx)
	next := make([]generation.Generation, 0, len(entries)+1)
	next = append(next, g)
	for _, existing := range entries {
		if existing.ID == g.ID {
			continue
		}
		next = append(next, existing)
	}
	s.store(ctx, truncate(next), "history_save_failed")
	s.logger.Debug("saved generation to history",
		logging.String(logging.FieldGenerationID, g.ID),
		logging.String("status", g.Status.String()),
		logging.Int("entry_count", min(len(next), MaxEntries)),
	)
}

// Load returns the list newest first. Missing or unreadable data yields an
// empty list.
func (s *Store) Load(ctx context.Context) []generation.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.key); err != nil {
		logging.WarnWithContext(s.logger, "history clear failed", "history_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history backend is reachable and writable"),
			logging.String(logging.FieldImpact, "previous entries remain in history"),
		)
	}
}

// Export serializes the whole list as indented JSON.
func (s *Store) Export(ctx context.Context) (string, error) {
	entries := s.Load(ctx)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return string(data), nil
}

// Import replaces the list with the entries decoded from text and returns how
// many were kept. Entries that do not decode as generations or lack an id are
// skipped, duplicate ids keep their first occurrence, and the result is capped
// at MaxEntries.
func (s *Store) Import(ctx context.Context, text string) (int, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var probe any
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return 0, fmt.Errorf("%w: parse history import: %w", services.ErrValidation, err)
		}
		return 0, ErrNotList
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return 0, fmt.Errorf("%w: parse history import: %w", services.ErrValidation, err)
	}

	entries := make([]generation.Generation, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	skipped := 0
	for _, item := range raw {
		var g generation.Generation
		if err := json.Unmarshal(item, &g); err != nil || strings.TrimSpace(g.ID) == "" {
			skipped++
			continue
		}
		if _, dup := seen[g.ID]; dup {
			skipped++
			continue
		}
		seen[g.ID] = struct{}{}
		entries = append(entries, g)
	}
	entries = truncate(entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(ctx, entries, "history_import_failed")
	s.logger.Info("imported history",
		logging.Int("imported", len(entries)),
		logging.Int("skipped", skipped),
	)
	return len(entries), nil
}

func (s *Store) load(ctx context.Context) []generation.Generation {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logging.WarnWithContext(s.logger, "history load failed", "history_load_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the history backend is reachable"),
				logging.String(logging.FieldImpact, "history shown as empty"),
			)
		}
		return []generation.Generation{}
	}
	var entries []generation.Generation
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.WarnWithContext(s.logger, "history data unreadable", "history_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run promptreel history clear to reset"),
			logging.String(logging.FieldImpact, "history shown as empty"),
		)
		return []generation.Generation{}
	}
	if entries == nil {
		entries = []generation.Generation{}
	}
	return entries
}

func (s *Store) store(ctx context.Context, entries []generation.Generation, eventType string) {
	data, err := json.Marshal(entries)
	if err == nil {
		err = s.kv.Set(ctx, s.key, data)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "history write failed", eventType,
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history backend is reachable and writable"),
			logging.String(logging.FieldImpact, "history change was not persisted"),
		)
	}
}

func truncate(entries []generation.Generation) []generation.Generation {
	if len(entries) > MaxEntries {
		return entries[:MaxEntries]
	}
	return entries
}
