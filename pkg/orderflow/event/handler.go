package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler consumes events of type T.
type Handler[T any] interface {
	Handle(ctx context.Context, evt T) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[T any] func(ctx context.Context, evt T) error

// Handle implements Handler.
func (f HandlerFunc[T]) Handle(ctx context.Context, evt T) error {
	return f(ctx, evt)
}

// Middleware wraps handlers to add cross-cutting concerns.
type Middleware[T any] func(next Handler[T]) Handler[T]

// Chain applies middleware in order, with first middleware outermost.
func Chain[T any](handler Handler[T], middleware ...Middleware[T]) Handler[T] {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}

// Recovery converts a handler panic into an *EventError.
func Recovery[T any](stage string) Middleware[T] {
	return func(next Handler[T]) Handler[T] {
		return HandlerFunc[T](func(ctx context.Context, evt T) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &EventError{
						EventID: idOf(evt),
						Stage:   stage,
						Message: fmt.Sprintf("handler panic: %v", r),
					}
				}
			}()
			return next.Handle(ctx, evt)
		})
	}
}

// Logging logs each handled event at debug level, or at error level when
// the handler fails.
func Logging[T any](logger *slog.Logger, stage string) Middleware[T] {
	return func(next Handler[T]) Handler[T] {
		if logger == nil {
			return next
		}
		return HandlerFunc[T](func(ctx context.Context, evt T) error {
			start := time.Now()
			err := next.Handle(ctx, evt)
			attrs := []any{
				slog.String("stage", stage),
				slog.String("event_id", idOf(evt)),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
			}
			if err != nil {
				logger.Error("handler failed", append(attrs, slog.String("error", err.Error()))...)
				return err
			}
			logger.Debug("handler completed", attrs...)
			return nil
		})
	}
}
