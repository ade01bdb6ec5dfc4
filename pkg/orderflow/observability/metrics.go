package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one synchronous publish and its duration.
	RecordPublish(ctx context.Context, duration time.Duration)

	// RecordFilter records a filter decision.
	RecordFilter(ctx context.Context, accepted bool)

	// RecordRoute records a dispatch to the named route.
	RecordRoute(ctx context.Context, route string)

	// RecordAggregate records a fired aggregate of count constituents.
	RecordAggregate(ctx context.Context, count int)

	// RecordNotification records a stored notification.
	RecordNotification(ctx context.Context)

	// RecordDeadLetter records a dead letter of the given payload kind.
	RecordDeadLetter(ctx context.Context, kind string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	publishCount   metric.Int64Counter
	publishLatency metric.Float64Histogram
	filterAccepted metric.Int64Counter
	filterRejected metric.Int64Counter
	routed         metric.Int64Counter
	aggregates     metric.Int64Counter
	aggregateSize  metric.Int64Histogram
	notifications  metric.Int64Counter
	deadLetters    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance on the global provider.
func newOtelMetrics() (*otelMetrics, error) {
	return newOtelMetricsFrom(otel.Meter("orderflow"))
}

func newOtelMetricsFrom(meter metric.Meter) (*otelMetrics, error) {
	publishCount, err := meter.Int64Counter("orderflow.publish.count",
		metric.WithDescription("Number of order events published"),
	)
	if err != nil {
		return nil, err
	}

	publishLatency, err := meter.Float64Histogram("orderflow.publish.latency_ms",
		metric.WithDescription("Synchronous publish latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	filterAccepted, err := meter.Int64Counter("orderflow.filter.accepted",
		metric.WithDescription("Number of events accepted by the message filter"),
	)
	if err != nil {
		return nil, err
	}

	filterRejected, err := meter.Int64Counter("orderflow.filter.rejected",
		metric.WithDescription("Number of events rejected by the message filter"),
	)
	if err != nil {
		return nil, err
	}

	routed, err := meter.Int64Counter("orderflow.route.dispatched",
		metric.WithDescription("Number of filtered events dispatched per route"),
	)
	if err != nil {
		return nil, err
	}

	aggregates, err := meter.Int64Counter("orderflow.aggregate.fired",
		metric.WithDescription("Number of per-customer aggregates emitted"),
	)
	if err != nil {
		return nil, err
	}

	aggregateSize, err := meter.Int64Histogram("orderflow.aggregate.size",
		metric.WithDescription("Constituent events per emitted aggregate"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter("orderflow.notification.recorded",
		metric.WithDescription("Number of order notifications recorded"),
	)
	if err != nil {
		return nil, err
	}

	deadLetters, err := meter.Int64Counter("orderflow.deadletter.reported",
		metric.WithDescription("Number of payloads sent to the dead letter channel"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		publishCount:   publishCount,
		publishLatency: publishLatency,
		filterAccepted: filterAccepted,
		filterRejected: filterRejected,
		routed:         routed,
		aggregates:     aggregates,
		aggregateSize:  aggregateSize,
		notifications:  notifications,
		deadLetters:    deadLetters,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFromProvider returns a MetricsRecorder bound to mp
// instead of the global provider.
func NewMetricsRecorderFromProvider(mp metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetricsFrom(mp.Meter("orderflow"))
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return m, nil
}

// RecordPublish records a publish.
func (m *otelMetrics) RecordPublish(ctx context.Context, duration time.Duration) {
	m.publishCount.Add(ctx, 1)
	m.publishLatency.Record(ctx, float64(duration.Microseconds())/1000.0)
}

// RecordFilter records a filter decision.
func (m *otelMetrics) RecordFilter(ctx context.Context, accepted bool) {
	if accepted {
		m.filterAccepted.Add(ctx, 1)
		return
	}
	m.filterRejected.Add(ctx, 1)
}

// RecordRoute records a dispatch.
func (m *otelMetrics) RecordRoute(ctx context.Context, route string) {
	m.routed.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// RecordAggregate records a fired aggregate.
func (m *otelMetrics) RecordAggregate(ctx context.Context, count int) {
	m.aggregates.Add(ctx, 1)
	m.aggregateSize.Record(ctx, int64(count))
}

// RecordNotification records a notification.
func (m *otelMetrics) RecordNotification(ctx context.Context) {
	m.notifications.Add(ctx, 1)
}

// RecordDeadLetter records a dead letter.
func (m *otelMetrics) RecordDeadLetter(ctx context.Context, kind string) {
	m.deadLetters.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
