package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event: bus is closed")

// EventError represents an error during event processing.
type EventError struct {
	EventID string // The event that failed (if known)
	Stage   string // Stage or consumer that failed (if known)
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements error interface.
func (e *EventError) Error() string {
	prefix := e.Message
	if e.Stage != "" {
		prefix = e.Stage + ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}

// idOf extracts the event ID when evt carries metadata.
func idOf(evt any) string {
	if ident, ok := evt.(Identifiable); ok {
		return ident.EventMeta().EventID
	}
	return ""
}
