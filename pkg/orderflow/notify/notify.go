// Package notify keeps recent order notifications for UI polling.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/ring"
)

// DefaultCapacity is the number of notifications retained.
const DefaultCapacity = 50

// Notification is the lightweight record exposed to polling clients.
type Notification struct {
	OrderID       int64           `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store is a bounded notification store. It is safe for concurrent use.
type Store struct {
	recent  *ring.Ring[Notification]
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets how many notifications are retained. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.recent = ring.New[Notification](n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a notification store.
func New(opts ...Option) *Store {
	s := &Store{
		recent:  ring.New[Notification](DefaultCapacity),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record stores a notification for evt. Nil events are ignored.
func (s *Store) Record(ctx context.Context, evt *event.FilteredOrderCreated) {
	if evt == nil {
		return
	}
	s.recent.Insert(Notification{
		OrderID:       evt.OrderID,
		CustomerEmail: evt.CustomerEmail,
		Total:         evt.Total,
		Status:        evt.Status,
		CreatedAt:     evt.CreatedAt,
	})
	observability.LogNotificationRecorded(s.logger, evt.OrderID)
	s.metrics.RecordNotification(ctx)
}

// Handle adapts Store to event.Handler. It never returns an error.
func (s *Store) Handle(ctx context.Context, evt *event.FilteredOrderCreated) error {
	s.Record(ctx, evt)
	return nil
}

// Recent returns stored notifications, newest first.
func (s *Store) Recent() []Notification {
	return s.recent.Snapshot()
}

// Clear discards all notifications.
func (s *Store) Clear() {
	s.recent.Clear()
}

var _ event.Handler[*event.FilteredOrderCreated] = (*Store)(nil)
