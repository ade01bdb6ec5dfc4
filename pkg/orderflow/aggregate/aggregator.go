// Package aggregate batches filtered orders per customer into summary events.
//
// Each customer email owns an independent bucket with its own lock, so
// different customers aggregate in parallel. When a bucket reaches the batch
// size it is removed and its summary is recorded and handed to the listener;
// the next order for that customer starts a fresh bucket.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/ring"
)

// Defaults.
const (
	DefaultBatchSize = 3
	DefaultCapacity  = 20
)

// Option configures an Aggregator or a Listener.
type Option func(*options)

type options struct {
	batchSize int
	capacity  int
	now       func() time.Time
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
}

// WithBatchSize sets how many orders close a bucket. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.batchSize = n
		}
	}
}

// WithCapacity sets how many fired aggregates are retained. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.capacity = n
		}
	}
}

// WithClock overrides the time source used when an order has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		batchSize: DefaultBatchSize,
		capacity:  DefaultCapacity,
		now:       time.Now,
		metrics:   observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// bucket accumulates one customer's orders until the batch size is reached.
type bucket struct {
	mu            sync.Mutex
	count         int
	total         decimal.Decimal
	lastCreatedAt time.Time
	lastMeta      event.Metadata
	retired       bool // removed from the map; callers must fetch a new bucket
}

// Aggregator is the per-customer event aggregator.
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	recent    *ring.Ring[*event.OrderAggregate]
	listener  event.Handler[*event.OrderAggregate]
	batchSize int
	now       func() time.Time
	metrics   observability.MetricsRecorder
}

// New creates an aggregator that hands each fired aggregate to listener.
// A nil listener only records aggregates.
func New(listener event.Handler[*event.OrderAggregate], opts ...Option) *Aggregator {
	o := applyOptions(opts)
	return &Aggregator{
		buckets:   make(map[string]*bucket),
		recent:    ring.New[*event.OrderAggregate](o.capacity),
		listener:  listener,
		batchSize: o.batchSize,
		now:       o.now,
		metrics:   o.metrics,
	}
}

// BatchSize returns the number of orders per aggregate.
func (a *Aggregator) BatchSize() int {
	return a.batchSize
}

// Aggregate adds evt to its customer's bucket and fires a summary when the
// bucket is full. Events without an email are ignored. The only error
// returned is one from the listener.
func (a *Aggregator) Aggregate(ctx context.Context, evt *event.FilteredOrderCreated) error {
	if evt == nil || strings.TrimSpace(evt.CustomerEmail) == "" {
		return nil
	}

	createdAt := evt.CreatedAt
	if createdAt.IsZero() {
		createdAt = a.now()
	}

	fired := a.add(evt, createdAt)
	if fired == nil {
		return nil
	}

	a.recent.Insert(fired)
	a.metrics.RecordAggregate(ctx, fired.Count)

	if a.listener == nil {
		return nil
	}
	return a.listener.Handle(ctx, fired)
}

// add mutates the bucket for evt and returns the aggregate if it fired.
// No lock is held when it returns.
func (a *Aggregator) add(evt *event.FilteredOrderCreated, createdAt time.Time) *event.OrderAggregate {
	email := evt.CustomerEmail
	for {
		b := a.bucketFor(email)

		b.mu.Lock()
		if b.retired {
			b.mu.Unlock()
			continue
		}

		b.count++
		b.total = b.total.Add(evt.Total)
		b.lastCreatedAt = createdAt
		b.lastMeta = evt.Meta

		if b.count < a.batchSize {
			b.mu.Unlock()
			return nil
		}

		fired := event.NewOrderAggregate(email, b.count, b.total, b.lastCreatedAt,
			event.WithCorrelationID(b.lastMeta.CorrelationID),
			event.WithCausationID(b.lastMeta.EventID),
			event.WithTimestamp(a.now()),
		)
		b.retired = true

		a.mu.Lock()
		if a.buckets[email] == b {
			delete(a.buckets, email)
		}
		a.mu.Unlock()

		b.mu.Unlock()
		return fired
	}
}

func (a *Aggregator) bucketFor(email string) *bucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[email]
	if !ok {
		b = &bucket{}
		a.buckets[email] = b
	}
	return b
}

// Handle adapts Aggregator to event.Handler.
func (a *Aggregator) Handle(ctx context.Context, evt *event.FilteredOrderCreated) error {
	return a.Aggregate(ctx, evt)
}

// Recent returns the last fired aggregates, newest first.
func (a *Aggregator) Recent() []*event.OrderAggregate {
	return a.recent.Snapshot()
}

// Pending returns the count in the open bucket for email, or 0 if none.
func (a *Aggregator) Pending(email string) int {
	a.mu.Lock()
	b, ok := a.buckets[email]
	a.mu.Unlock()
	if !ok {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.retired {
		return 0
	}
	return b.count
}

// OpenBuckets returns the number of customers with an open bucket.
func (a *Aggregator) OpenBuckets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buckets)
}

var _ event.Handler[*event.FilteredOrderCreated] = (*Aggregator)(nil)
