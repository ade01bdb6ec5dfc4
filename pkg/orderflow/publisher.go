package orderflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

// OrderCreatedFrom converts a persisted order into a raw event.
// It returns nil for a nil order. A zero ID becomes an absent order ID,
// a missing customer an empty email, and a zero order date now.
func OrderCreatedFrom(order *store.Order, now time.Time) *event.OrderCreated {
	if order == nil {
		return nil
	}

	var id *int64
	if order.ID != 0 {
		id = &order.ID
	}
	createdAt := order.OrderDate
	if createdAt.IsZero() {
		createdAt = now
	}

	return event.NewOrderCreated(id, order.CustomerEmail(), decimal.NewNullDecimal(order.Total),
		order.Status, createdAt, event.WithTimestamp(now))
}

// Publisher is the pipeline entry point. It converts orders into events and
// drives the filter synchronously.
type Publisher struct {
	filter  event.Handler[*event.OrderCreated]
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
}

// NewPublisher creates a publisher that hands every raw event to filter.
func NewPublisher(filter event.Handler[*event.OrderCreated], opts ...Option) *Publisher {
	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Publisher{
		filter:  filter,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		spans:   cfg.spans,
		now:     cfg.now,
	}
}

// Publish converts order and runs it through the pipeline. A nil order is
// a no-op. Every consumer has finished when Publish returns.
func (p *Publisher) Publish(ctx context.Context, order *store.Order) {
	p.PublishEvent(ctx, OrderCreatedFrom(order, p.now()))
}

// PublishEvent runs an already-built raw event through the pipeline.
// A nil event is a no-op.
func (p *Publisher) PublishEvent(ctx context.Context, raw *event.OrderCreated) {
	if raw == nil || p.filter == nil {
		return
	}

	start := time.Now()
	ctx, span := p.spans.StartPublishSpan(ctx, raw.OrderIDValue())
	err := p.filter.Handle(ctx, raw)
	p.spans.EndSpanWithError(span, err)

	elapsed := time.Since(start)
	p.metrics.RecordPublish(ctx, elapsed)
	observability.LogPublished(p.logger, raw.OrderIDValue(), float64(elapsed.Microseconds())/1000.0)
}
