package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// Subscription represents an active subscription.
type Subscription interface {
	// Name returns the subscriber name given at Subscribe time.
	Name() string

	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// BusConfig configures bus behavior.
type BusConfig[T any] struct {
	// Logger receives consumer failures. Nil disables logging.
	Logger *slog.Logger

	// Spans opens one consumer span per delivery.
	// Default: observability.NoopSpanManager
	Spans observability.SpanManager

	// OnError is called when a subscriber returns an error or panics.
	// Delivery to the remaining subscribers continues either way.
	OnError func(ctx context.Context, evt T, subscriber string, err error)
}

// Bus delivers each published event synchronously to every active
// subscriber, in subscription order, on the publisher's goroutine.
type Bus[T any] struct {
	config BusConfig[T]

	mu   sync.RWMutex
	subs []*subscription[T]

	closed atomic.Bool
}

// NewBus creates a synchronous fan-out bus.
func NewBus[T any](config BusConfig[T]) *Bus[T] {
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}
	return &Bus[T]{config: config}
}

type subscription[T any] struct {
	name    string
	handler Handler[T]
	paused  atomic.Bool
	bus     *Bus[T]
}

// Subscribe registers handler under name. Subscribing to a closed bus
// returns nil.
func (b *Bus[T]) Subscribe(name string, handler Handler[T]) Subscription {
	if b.closed.Load() {
		return nil
	}

	sub := &subscription[T]{
		name:    name,
		handler: handler,
		bus:     b,
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub
}

// Publish delivers evt to every active subscriber. A failing subscriber
// never stops delivery to the others and never fails the publish.
func (b *Bus[T]) Publish(ctx context.Context, evt T) error {
	if b.closed.Load() {
		return &EventError{
			EventID: idOf(evt),
			Message: "publish",
			Err:     ErrBusClosed,
		}
	}

	// Snapshot so handlers run without the lock held.
	b.mu.RLock()
	subs := make([]*subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.paused.Load() {
			continue
		}
		if err := b.deliver(ctx, sub, evt); err != nil {
			observability.LogConsumerError(b.config.Logger, sub.name, err)
			if b.config.OnError != nil {
				b.config.OnError(ctx, evt, sub.name, err)
			}
		}
	}

	return nil
}

func (b *Bus[T]) deliver(ctx context.Context, sub *subscription[T], evt T) (err error) {
	ctx, span := b.config.Spans.StartConsumerSpan(ctx, sub.name)
	defer func() {
		if r := recover(); r != nil {
			err = &EventError{
				EventID: idOf(evt),
				Stage:   sub.name,
				Message: fmt.Sprintf("handler panic: %v", r),
			}
		}
		b.config.Spans.EndSpanWithError(span, err)
	}()

	return sub.handler.Handle(ctx, evt)
}

// Len returns the number of registered subscriptions.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops all subscriptions. Later publishes fail with ErrBusClosed.
func (b *Bus[T]) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	return nil
}

func (b *Bus[T]) remove(target *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == target {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (s *subscription[T]) Name() string { return s.name }

func (s *subscription[T]) Unsubscribe() { s.bus.remove(s) }

func (s *subscription[T]) Pause() { s.paused.Store(true) }

func (s *subscription[T]) Resume() { s.paused.Store(false) }

func (s *subscription[T]) IsPaused() bool { return s.paused.Load() }
