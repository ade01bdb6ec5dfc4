package route

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// Option configures a Router or a handler.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	threshold decimal.Decimal
	capacity  int
}

func defaultOptions() options {
	return options{
		metrics:   observability.NoopMetrics{},
		threshold: DefaultThreshold,
		capacity:  DefaultFlaggedCapacity,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
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

// WithThreshold sets the high-value boundary (router only).
// Totals greater than or equal to it are high value.
func WithThreshold(threshold decimal.Decimal) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithCapacity sets the review queue size (high-value handler only).
// Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.capacity = n
		}
	}
}
