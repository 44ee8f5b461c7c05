package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// BufferedHandler is an slog.Handler that keeps records in memory as JSON lines.
// Tests install it to assert on what a run logged:
//
//	h := logging.NewBufferedHandler(slog.LevelWarn)
//	logging.SetLogger(slog.New(h))
//	defer logging.SetLogger(nil)
type BufferedHandler struct {
	level  slog.Leveler
	state  *bufferState
	attrs  []slog.Attr
	groups []string
}

type bufferState struct {
	mu  sync.Mutex
	buf bytes.Buffer
	n   int
}

type record struct {
	Level   string            `json:"level"`
	Message string            `json:"msg"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// NewBufferedHandler captures records at or above level. A nil level captures everything.
func NewBufferedHandler(level slog.Leveler) *BufferedHandler {
	return &BufferedHandler{level: level, state: &bufferState{}}
}

func (h *BufferedHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	rec := record{Level: r.Level.String(), Message: r.Message}
	add := func(key string, v slog.Value) {
		if rec.Attrs == nil {
			rec.Attrs = make(map[string]string)
		}
		rec.Attrs[key] = v.String()
	}
	for _, a := range h.attrs {
		add(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(h.prefixed(a.Key), a.Value)
		return true
	})

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.buf.Write(data)
	h.state.buf.WriteByte('\n')
	h.state.n++
	return nil
}

// prefixed qualifies key with the open groups.
func (h *BufferedHandler) prefixed(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.prefixed(a.Key), Value: a.Value})
	}
	return &BufferedHandler{level: h.level, state: h.state, attrs: merged, groups: h.groups}
}

func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return &BufferedHandler{level: h.level, state: h.state, attrs: h.attrs, groups: groups}
}

// String returns every captured record, one JSON object per line.
func (h *BufferedHandler) String() string {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.buf.String()
}

// Contains reports whether any captured record contains s.
func (h *BufferedHandler) Contains(s string) bool {
	return strings.Contains(h.String(), s)
}

// Count returns the number of captured records.
func (h *BufferedHandler) Count() int {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.n
}

// Reset drops all captured records.
func (h *BufferedHandler) Reset() {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.buf.Reset()
	h.state.n = 0
}
