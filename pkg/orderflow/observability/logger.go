// Package observability provides structured logging, metrics, and tracing
// for the order-event pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper tolerates a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger with correlation_id and stage fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, evt.Meta.CorrelationID, "router")
//	enriched.Info("dispatching") // includes correlation_id, stage
func EnrichLogger(logger *slog.Logger, correlationID, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("correlation_id", correlationID),
		slog.String("stage", stage),
	)
}

// LogPublished logs completion of a synchronous publish.
func LogPublished(logger *slog.Logger, orderID int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("order event published",
		slog.Int64("order_id", orderID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogFilterRejected logs an event dropped by the message filter.
func LogFilterRejected(logger *slog.Logger, orderID int64, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("order event rejected",
		slog.Int64("order_id", orderID),
		slog.String("reason", reason),
	)
}

// LogHighValueFlagged logs an order sent to manual review.
func LogHighValueFlagged(logger *slog.Logger, orderID int64, total string) {
	if logger == nil {
		return
	}
	logger.Info("high-value order flagged for review",
		slog.Int64("order_id", orderID),
		slog.String("total", total),
	)
}

// LogStandardHandled logs an order processed on the standard route.
func LogStandardHandled(logger *slog.Logger, orderID int64, total string) {
	if logger == nil {
		return
	}
	logger.Debug("standard order handled",
		slog.Int64("order_id", orderID),
		slog.String("total", total),
	)
}

// LogAggregateFired logs an aggregate summary emitted for a customer.
func LogAggregateFired(logger *slog.Logger, email string, count int, total string, lastCreatedAt time.Time) {
	if logger == nil {
		return
	}
	logger.Info("order aggregate fired",
		slog.String("customer_email", email),
		slog.Int("count", count),
		slog.String("total", total),
		slog.Time("last_created_at", lastCreatedAt),
	)
}

// LogNotificationRecorded logs a notification stored for polling.
func LogNotificationRecorded(logger *slog.Logger, orderID int64) {
	if logger == nil {
		return
	}
	logger.Debug("order notification recorded",
		slog.Int64("order_id", orderID),
	)
}

// LogDeadLetter logs a payload that the pipeline could not process.
func LogDeadLetter(logger *slog.Logger, payloadType, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("dead letter reported",
		slog.String("payload_type", payloadType),
		slog.String("reason", reason),
	)
}

// LogConsumerError logs a failure returned by a fan-out consumer.
func LogConsumerError(logger *slog.Logger, consumer string, err error) {
	if logger == nil {
		return
	}
	logger.Error("consumer failed",
		slog.String("consumer", consumer),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
