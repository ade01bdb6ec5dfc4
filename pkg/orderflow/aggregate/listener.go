package aggregate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// Listener is the terminal observer of aggregate summaries.
type Listener struct {
	observed atomic.Int64
	last     atomic.Pointer[event.OrderAggregate]
	logger   *slog.Logger
}

// NewListener creates a listener. Only WithLogger applies.
func NewListener(opts ...Option) *Listener {
	o := applyOptions(opts)
	return &Listener{logger: o.logger}
}

// OnAggregate records evt. Nil events are ignored.
func (l *Listener) OnAggregate(_ context.Context, evt *event.OrderAggregate) {
	if evt == nil {
		return
	}
	l.observed.Add(1)
	l.last.Store(evt)
	observability.LogAggregateFired(l.logger, evt.CustomerEmail, evt.Count, evt.Total.StringFixed(2), evt.LastCreatedAt)
}

// Handle adapts Listener to event.Handler. It never returns an error.
func (l *Listener) Handle(ctx context.Context, evt *event.OrderAggregate) error {
	l.OnAggregate(ctx, evt)
	return nil
}

// Observed returns how many aggregates were seen.
func (l *Listener) Observed() int64 {
	return l.observed.Load()
}

// Last returns the most recent aggregate, or nil.
func (l *Listener) Last() *event.OrderAggregate {
	return l.last.Load()
}

var _ event.Handler[*event.OrderAggregate] = (*Listener)(nil)
