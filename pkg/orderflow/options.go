package orderflow

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
)

// pipelineConfig holds ambient collaborators shared by every stage.
type pipelineConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
}

// Option configures a Pipeline or a Publisher.
type Option func(*pipelineConfig)

// WithLogger sets the logger handed to every stage.
// Default: nil (no logging)
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics
//
// Example:
//
//	p := orderflow.New(settings, orderflow.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *pipelineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets the tracing span manager.
// Default: observability.NoopSpanManager
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *pipelineConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithClock overrides the time source for event timestamps, defaulted
// order dates and dead letter records.
func WithClock(now func() time.Time) Option {
	return func(c *pipelineConfig) {
		if now != nil {
			c.now = now
		}
	}
}
