package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types carried in Metadata.EventType.
const (
	TypeOrderCreated         = "order.created"
	TypeFilteredOrderCreated = "order.created.filtered"
	TypeOrderAggregate       = "order.aggregate"
)

// StatusCreated is the only order status the filter accepts (case-insensitive).
const StatusCreated = "CREATED"

// Metadata contains identity and correlation fields common to every event.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	CorrelationID string    `json:"correlation_id"`
	CausationID   string    `json:"causation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Identifiable is implemented by every pipeline event.
type Identifiable interface {
	EventMeta() Metadata
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	causationID   string
	timestamp     time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func WithCorrelationID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.causationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// NewMetadata creates metadata for a new event of the given type.
// Without a correlation ID the event becomes the root of its own chain.
func NewMetadata(eventType string, opts ...Option) Metadata {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return Metadata{
		EventID:       cfg.id,
		EventType:     eventType,
		CorrelationID: cfg.correlationID,
		CausationID:   cfg.causationID,
		Timestamp:     cfg.timestamp,
	}
}

// DeriveMetadata creates metadata for an event caused by parent.
// It inherits the correlation ID and records parent as the cause.
func DeriveMetadata(parent Metadata, eventType string, opts ...Option) Metadata {
	parentOpts := []Option{
		WithCorrelationID(parent.CorrelationID),
		WithCausationID(parent.EventID),
	}
	return NewMetadata(eventType, append(parentOpts, opts...)...)
}

// OrderCreated is the raw fact that an order was persisted.
// It is produced from upstream data and may be incomplete; only the
// filter consumes it. Events are immutable once created.
type OrderCreated struct {
	Meta          Metadata            `json:"metadata"`
	OrderID       *int64              `json:"order_id"`
	CustomerEmail string              `json:"customer_email"`
	Total         decimal.NullDecimal `json:"total"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewOrderCreated creates a raw order event. A zero createdAt defaults to
// the event timestamp.
func NewOrderCreated(
	orderID *int64,
	customerEmail string,
	total decimal.NullDecimal,
	status string,
	createdAt time.Time,
	opts ...Option,
) *OrderCreated {
	meta := NewMetadata(TypeOrderCreated, opts...)
	if createdAt.IsZero() {
		createdAt = meta.Timestamp
	}
	if orderID != nil {
		id := *orderID
		orderID = &id
	}
	return &OrderCreated{
		Meta:          meta,
		OrderID:       orderID,
		CustomerEmail: customerEmail,
		Total:         total,
		Status:        status,
		CreatedAt:     createdAt,
	}
}

// EventMeta implements Identifiable.
func (e *OrderCreated) EventMeta() Metadata {
	if e == nil {
		return Metadata{}
	}
	return e.Meta
}

// OrderIDValue returns the order ID, or 0 when absent.
func (e *OrderCreated) OrderIDValue() int64 {
	if e == nil || e.OrderID == nil {
		return 0
	}
	return *e.OrderID
}

// FilteredOrderCreated is an order event that passed the message filter.
// OrderID is present, Total is positive, CustomerEmail is non-blank and
// Status equals "CREATED" ignoring case (the original casing is kept).
type FilteredOrderCreated struct {
	Meta          Metadata        `json:"metadata"`
	OrderID       int64           `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FilteredFrom copies raw into a trusted event derived from it.
// It does not validate; only the filter should call it after acceptance.
// Returns nil for a nil raw event.
func FilteredFrom(raw *OrderCreated, opts ...Option) *FilteredOrderCreated {
	if raw == nil {
		return nil
	}
	return &FilteredOrderCreated{
		Meta:          DeriveMetadata(raw.Meta, TypeFilteredOrderCreated, opts...),
		OrderID:       raw.OrderIDValue(),
		CustomerEmail: raw.CustomerEmail,
		Total:         raw.Total.Decimal,
		Status:        raw.Status,
		CreatedAt:     raw.CreatedAt,
	}
}

// EventMeta implements Identifiable.
func (e *FilteredOrderCreated) EventMeta() Metadata {
	if e == nil {
		return Metadata{}
	}
	return e.Meta
}

// OrderAggregate summarises a batch of filtered orders for one customer.
type OrderAggregate struct {
	Meta          Metadata        `json:"metadata"`
	CustomerEmail string          `json:"customer_email"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
	LastCreatedAt time.Time       `json:"last_created_at"`
}

// NewOrderAggregate creates an aggregate summary.
func NewOrderAggregate(
	customerEmail string,
	count int,
	total decimal.Decimal,
	lastCreatedAt time.Time,
	opts ...Option,
) *OrderAggregate {
	return &OrderAggregate{
		Meta:          NewMetadata(TypeOrderAggregate, opts...),
		CustomerEmail: customerEmail,
		Count:         count,
		Total:         total,
		LastCreatedAt: lastCreatedAt,
	}
}

// EventMeta implements Identifiable.
func (e *OrderAggregate) EventMeta() Metadata {
	if e == nil {
		return Metadata{}
	}
	return e.Meta
}
