// Package filter validates raw order events and forwards only trusted ones.
package filter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/orderflow/pkg/orderflow/deadletter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// RejectReason is the dead letter reason for every rejected raw event.
const RejectReason = "Filtered: invalid status, total, or customer email"

// Filter is the message filter between the publisher and the fan-out bus.
type Filter struct {
	dlq        deadletter.Reporter
	downstream event.Handler[*event.FilteredOrderCreated]
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	now        func() time.Time
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(f *Filter) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithClock overrides the time source used for filtered event timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		if now != nil {
			f.now = now
		}
	}
}

// New creates a filter that reports rejections to dlq and forwards accepted
// events to downstream. A nil downstream only filters.
func New(dlq deadletter.Reporter, downstream event.Handler[*event.FilteredOrderCreated], opts ...Option) *Filter {
	f := &Filter{
		dlq:        dlq,
		downstream: downstream,
		metrics:    observability.NoopMetrics{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Accept reports whether raw satisfies the acceptance predicate.
func Accept(raw *event.OrderCreated) bool {
	if raw == nil || raw.OrderID == nil {
		return false
	}
	if !strings.EqualFold(raw.Status, event.StatusCreated) {
		return false
	}
	if !raw.Total.Valid || !raw.Total.Decimal.IsPositive() {
		return false
	}
	return strings.TrimSpace(raw.CustomerEmail) != ""
}

// Filter validates raw. Accepted events are forwarded downstream and
// returned; rejected events are dead-lettered and (nil, false) is returned.
// A raw event is never both forwarded and dead-lettered.
func (f *Filter) Filter(ctx context.Context, raw *event.OrderCreated) (*event.FilteredOrderCreated, bool) {
	if !Accept(raw) {
		f.metrics.RecordFilter(ctx, false)
		observability.LogFilterRejected(f.logger, raw.OrderIDValue(), RejectReason)
		if f.dlq != nil {
			f.dlq.Report(ctx, raw, RejectReason)
		}
		return nil, false
	}

	filtered := event.FilteredFrom(raw, event.WithTimestamp(f.now()))
	f.metrics.RecordFilter(ctx, true)

	if f.downstream != nil {
		// Downstream consumers dead-letter their own failures.
		_ = f.downstream.Handle(ctx, filtered)
	}
	return filtered, true
}

// Handle adapts Filter to event.Handler. It never returns an error.
func (f *Filter) Handle(ctx context.Context, raw *event.OrderCreated) error {
	f.Filter(ctx, raw)
	return nil
}

var _ event.Handler[*event.OrderCreated] = (*Filter)(nil)
