// Package logtest captures slog records for assertions in tests.
package logtest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Handler captures log records as JSON lines.
// It is safe for concurrent use.
type Handler struct {
	mu     *sync.Mutex
	buf    *bytes.Buffer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// New creates a Handler that captures records at debug level and above.
func New() *Handler {
	return &Handler{
		mu:    &sync.Mutex{},
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

// Logger returns a logger backed by h.
func (h *Handler) Logger() *slog.Logger {
	return slog.New(h)
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}

	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &Handler{
		mu:     h.mu,
		buf:    h.buf,
		level:  h.level,
		attrs:  make([]slog.Attr, len(h.attrs)+len(attrs)),
		groups: h.groups,
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		mu:     h.mu,
		buf:    h.buf,
		level:  h.level,
		attrs:  h.attrs,
		groups: append(h.groups, name),
	}
}

// Last returns the most recent record, or nil if nothing was logged.
func (h *Handler) Last() map[string]any {
	records := h.Records()
	if len(records) == 0 {
		return nil
	}
	return records[len(records)-1]
}

// Records returns every captured record in order.
func (h *Handler) Records() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

// Messages returns the msg field of every captured record.
func (h *Handler) Messages() []string {
	var msgs []string
	for _, r := range h.Records() {
		if s, ok := r["msg"].(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}
