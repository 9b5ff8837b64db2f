package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// infoFieldLimit caps the fields printed under an INFO line; DEBUG prints all.
const infoFieldLimit = 8

// consoleHandler renders one header line per record:
//
//	2026-01-02 15:04:05 INFO [tracker] Gen 1a2b3c4d (task op-9) – submitted
//
// followed by "    - key: value" lines for the remaining fields.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	attrs     []slog.Attr
	groups    []string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var fields []field
	for _, attr := range h.attrs {
		fields = appendField(fields, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})

	header := map[string]string{}
	rest := fields[:0:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent, FieldGenerationID, FieldTaskID:
			if _, seen := header[f.key]; !seen {
				header[f.key] = plainString(f.value)
			}
		default:
			rest = append(rest, f)
		}
	}
	rest = lastWins(rest)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component := header[FieldComponent]; component != "" {
		fmt.Fprintf(&buf, " [%s]", component)
	}
	if subject := composeSubject(header[FieldGenerationID], header[FieldTaskID]); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	buf.WriteByte('\n')

	shown := rest
	if record.Level >= slog.LevelInfo && len(shown) > infoFieldLimit {
		shown = shown[:infoFieldLimit]
	}
	for _, f := range shown {
		fmt.Fprintf(&buf, "    - %s: %s\n", f.key, formatValue(f.value))
	}
	switch hidden := len(rest) - len(shown); {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(&buf, "    + %d more fields hidden\n", hidden)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// composeSubject renders "Gen 1a2b3c4d (task op-9)" style prefixes.
func composeSubject(generationID, taskID string) string {
	generationID = strings.TrimSpace(generationID)
	taskID = strings.TrimSpace(taskID)
	if len(generationID) > 8 {
		generationID = generationID[:8]
	}
	switch {
	case generationID != "" && taskID != "":
		return "Gen " + generationID + " (task " + taskID + ")"
	case generationID != "":
		return "Gen " + generationID
	case taskID != "":
		return "Task " + taskID
	default:
		return ""
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

type field struct {
	key   string
	value slog.Value
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, child := range attr.Value.Group() {
			dst = appendField(dst, prefix, child)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	return append(dst, field{key: key, value: attr.Value})
}

// lastWins drops earlier duplicates while keeping first-seen order.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
