package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("orderflow")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("orderflow")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestSpanManager_PublishAndConsumerSpans(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, publish := sm.StartPublishSpan(context.Background(), 42)
	_, consumer := sm.StartConsumerSpan(ctx, "router")
	sm.EndSpanWithError(consumer, nil)
	sm.EndSpanWithError(publish, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	consumerSpan, publishSpan := spans[0], spans[1]
	assert.Equal(t, "orderflow.consumer.router", consumerSpan.Name)
	assert.Equal(t, "orderflow.publish", publishSpan.Name)
	assert.Equal(t, publishSpan.SpanContext.SpanID(), consumerSpan.Parent.SpanID())
	assert.Contains(t, publishSpan.Attributes, attribute.Int64("order.id", 42))
	assert.Equal(t, codes.Ok, publishSpan.Status.Code)
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	_, span := sm.StartConsumerSpan(context.Background(), "notifications")
	sm.EndSpanWithError(span, errors.New("store unavailable"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "store unavailable", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartPublishSpan(context.Background(), 1)
	sm.AddSpanEvent(ctx, "filter.rejected", attribute.String("reason", "invalid"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "filter.rejected", spans[0].Events[0].Name)
}

func TestSpanManager_NilSpan(t *testing.T) {
	sm := NewSpanManager()
	assert.NotPanics(t, func() {
		sm.EndSpanWithError(nil, errors.New("ignored"))
		sm.AddSpanEvent(context.Background(), "no span")
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	gotCtx, span := sm.StartPublishSpan(ctx, 1)
	assert.Equal(t, ctx, gotCtx)
	assert.False(t, span.IsRecording())

	gotCtx, span = sm.StartConsumerSpan(ctx, "router")
	assert.Equal(t, ctx, gotCtx)
	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("x"))
		sm.AddSpanEvent(ctx, "evt")
	})
}

func TestNewSpanManagerFromProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sm := NewSpanManagerFromProvider(tp)
	_, span := sm.StartConsumerSpan(context.Background(), "aggregator")
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "orderflow.consumer.aggregator", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("consumer.name", "aggregator"))
}
