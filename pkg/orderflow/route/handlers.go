package route

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/ring"
)

// DefaultFlaggedCapacity is the size of the high-value review queue.
const DefaultFlaggedCapacity = 20

// HighValueHandler keeps recent high-value orders for manual review.
type HighValueHandler struct {
	flagged *ring.Ring[*event.FilteredOrderCreated]
	logger  *slog.Logger
}

// NewHighValueHandler creates a high-value handler.
func NewHighValueHandler(opts ...Option) *HighValueHandler {
	o := applyOptions(opts)
	return &HighValueHandler{
		flagged: ring.New[*event.FilteredOrderCreated](o.capacity),
		logger:  o.logger,
	}
}

// Handle flags evt for review. Nil events are ignored.
func (h *HighValueHandler) Handle(_ context.Context, evt *event.FilteredOrderCreated) error {
	if evt == nil {
		return nil
	}
	h.flagged.Insert(evt)
	observability.LogHighValueFlagged(h.logger, evt.OrderID, evt.Total.StringFixed(2))
	return nil
}

// Flagged returns the review queue, newest first.
func (h *HighValueHandler) Flagged() []*event.FilteredOrderCreated {
	return h.flagged.Snapshot()
}

// StandardHandler is the default path for most orders. It keeps no state
// beyond a counter.
type StandardHandler struct {
	handled atomic.Int64
	logger  *slog.Logger
}

// NewStandardHandler creates a standard handler.
func NewStandardHandler(opts ...Option) *StandardHandler {
	o := applyOptions(opts)
	return &StandardHandler{logger: o.logger}
}

// Handle records evt. Nil events are ignored.
func (h *StandardHandler) Handle(_ context.Context, evt *event.FilteredOrderCreated) error {
	if evt == nil {
		return nil
	}
	h.handled.Add(1)
	observability.LogStandardHandled(h.logger, evt.OrderID, evt.Total.StringFixed(2))
	return nil
}

// Handled returns how many events took the standard path.
func (h *StandardHandler) Handled() int64 {
	return h.handled.Load()
}
