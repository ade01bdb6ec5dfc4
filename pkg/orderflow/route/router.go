// Package route dispatches filtered orders by total to exactly one of two
// terminal handlers.
package route

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/deadletter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// RoutingErrorPrefix prefixes the dead letter reason of a failed dispatch.
const RoutingErrorPrefix = "Routing error: "

// DefaultThreshold is the default high-value boundary.
var DefaultThreshold = decimal.RequireFromString("500.00")

// Route names a dispatch target.
type Route string

// Dispatch targets.
const (
	HighValue Route = "high_value"
	Standard  Route = "standard"
)

// Router is the content-based router.
type Router struct {
	highValue event.Handler[*event.FilteredOrderCreated]
	standard  event.Handler[*event.FilteredOrderCreated]
	dlq       deadletter.Reporter
	threshold decimal.Decimal
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
}

// NewRouter creates a router. Handler failures are reported to dlq.
func NewRouter(highValue, standard event.Handler[*event.FilteredOrderCreated], dlq deadletter.Reporter, opts ...Option) *Router {
	o := applyOptions(opts)
	return &Router{
		highValue: event.Chain(highValue, event.Recovery[*event.FilteredOrderCreated](string(HighValue))),
		standard:  event.Chain(standard, event.Recovery[*event.FilteredOrderCreated](string(Standard))),
		dlq:       dlq,
		threshold: o.threshold,
		logger:    o.logger,
		metrics:   o.metrics,
	}
}

// Threshold returns the high-value boundary.
func (r *Router) Threshold() decimal.Decimal {
	return r.threshold
}

// Classify returns the route for total.
func (r *Router) Classify(total decimal.Decimal) Route {
	if total.GreaterThanOrEqual(r.threshold) {
		return HighValue
	}
	return Standard
}

// Route dispatches evt to one handler. It never fails; handler errors
// and panics are dead-lettered with RoutingErrorPrefix.
func (r *Router) Route(ctx context.Context, evt *event.FilteredOrderCreated) {
	if evt == nil {
		return
	}

	target := r.Classify(evt.Total)
	handler := r.standard
	if target == HighValue {
		handler = r.highValue
	}

	if err := handler.Handle(ctx, evt); err != nil {
		if r.logger != nil {
			r.logger.Error("route dispatch failed",
				slog.Int64("order_id", evt.OrderID),
				slog.String("route", string(target)),
				slog.String("error", err.Error()),
			)
		}
		if r.dlq != nil {
			r.dlq.Report(ctx, evt, RoutingErrorPrefix+err.Error())
		}
		return
	}
	r.metrics.RecordRoute(ctx, string(target))
}

// Handle adapts Router to event.Handler. It never returns an error.
func (r *Router) Handle(ctx context.Context, evt *event.FilteredOrderCreated) error {
	r.Route(ctx, evt)
	return nil
}

var _ event.Handler[*event.FilteredOrderCreated] = (*Router)(nil)
