package httpapi

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/orderflow/pkg/orderflow"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

// App holds the collaborators behind the HTTP handlers.
type App struct {
	pipeline  *orderflow.Pipeline
	store     store.Store
	inventory *Inventory
	metrics   MetricsCollector
	logger    *slog.Logger
	now       func() time.Time

	closing atomic.Bool
	started time.Time
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for access logs and order events.
// Default: nil (no logging)
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithInventory enables stock checks on order creation.
// Default: nil (unlimited stock)
func WithInventory(inv *Inventory) Option {
	return func(a *App) {
		a.inventory = inv
	}
}

// WithMetricsCollector exposes collected OTel metrics on /debug/metrics.
func WithMetricsCollector(c MetricsCollector) Option {
	return func(a *App) {
		a.metrics = c
	}
}

// WithClock overrides the time source for order dates.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// NewApp creates an App publishing into p and persisting into st.
func NewApp(p *orderflow.Pipeline, st store.Store, opts ...Option) *App {
	a := &App{
		pipeline: p,
		store:    st,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.started = a.now()
	return a
}

// StartShutdown makes order creation answer 503 while in-flight requests
// drain.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}
