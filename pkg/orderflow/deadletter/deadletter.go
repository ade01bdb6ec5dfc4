// Package deadletter implements the pipeline's last-resort sink for payloads
// that a stage could not process.
//
// A Channel keeps the most recent dead letters in a bounded ring and never
// fails: Report swallows its own internal faults so that every other
// component can call it unconditionally.
package deadletter

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/ring"
)

// DefaultCapacity is the number of dead letters retained.
const DefaultCapacity = 50

// UnknownType labels a nil payload.
const UnknownType = "Unknown"

// DeadLetter is an immutable diagnostic record.
type DeadLetter struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Reporter is the narrow interface pipeline stages depend on.
type Reporter interface {
	Report(ctx context.Context, payload any, reason string)
}

// Channel is a bounded, inspectable store of dead letters.
// It is safe for concurrent use.
type Channel struct {
	letters  *ring.Ring[DeadLetter]
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	now      func() time.Time
	onReport func(DeadLetter)
}

// Option configures a Channel.
type Option func(*Channel)

// WithCapacity sets how many dead letters are retained (default 50).
// Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(c *Channel) {
		if n >= 1 {
			c.letters = ring.New[DeadLetter](n)
		}
	}
}

// WithLogger sets the logger used for each report.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Channel) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnReport registers a hook called after each dead letter is stored.
// A panicking hook is recovered.
func WithOnReport(fn func(DeadLetter)) Option {
	return func(c *Channel) {
		c.onReport = fn
	}
}

// New creates a dead letter channel.
func New(opts ...Option) *Channel {
	c := &Channel{
		letters: ring.New[DeadLetter](DefaultCapacity),
		metrics: observability.NoopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report records payload with reason. It never panics and never fails.
func (c *Channel) Report(ctx context.Context, payload any, reason string) {
	defer func() {
		_ = recover()
	}()

	letter := DeadLetter{
		ID:        uuid.New().String(),
		Type:      TypeName(payload),
		Payload:   payload,
		Reason:    reason,
		CreatedAt: c.now(),
	}
	c.letters.Insert(letter)

	observability.LogDeadLetter(c.logger, letter.Type, reason)
	c.metrics.RecordDeadLetter(ctx, letter.Type)

	if c.onReport != nil {
		c.onReport(letter)
	}
}

// List returns the retained dead letters, newest first.
func (c *Channel) List() []DeadLetter {
	return c.letters.Snapshot()
}

// Clear discards every retained dead letter.
func (c *Channel) Clear() {
	c.letters.Clear()
}

// Len returns the number of retained dead letters.
func (c *Channel) Len() int {
	return c.letters.Len()
}

// TypeName returns the bare type name of payload with pointers stripped,
// or UnknownType for nil.
func TypeName(payload any) string {
	if payload == nil {
		return UnknownType
	}
	t := reflect.TypeOf(payload)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

var _ Reporter = (*Channel)(nil)
