// Package store persists orders for the pipeline's REST adapter.
//
// Two implementations are provided:
//   - MemoryStore: For testing and development
//   - SQLiteStore: For single-process production use
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no order has the requested ID.
	ErrNotFound = errors.New("store: order not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store: closed")
)

// Store is the persistence collaborator for orders.
type Store interface {
	// FindByID returns a copy of the order with id.
	// Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id int64) (*Order, error)

	// Save inserts order, assigning an ID when order.ID is zero, or
	// replaces the stored order with the same ID.
	Save(ctx context.Context, order *Order) error

	// Query returns copies of every order matching pred, ordered by ID.
	// A nil pred matches everything.
	Query(ctx context.Context, pred Predicate) ([]*Order, error)

	// Close releases resources. Further calls return ErrStoreClosed.
	Close() error
}

// Predicate selects orders in Query.
type Predicate func(*Order) bool

// Customer placed an order.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Item is one order line.
type Item struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is a persisted order.
type Order struct {
	ID              int64           `json:"id"`
	Customer        *Customer       `json:"customer,omitempty"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	OrderDate       time.Time       `json:"order_date"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	Items           []Item          `json:"items,omitempty"`
}

// ItemsTotal returns the sum of quantity times unit price over all items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// CustomerEmail returns the customer's email, or "" without a customer.
func (o *Order) CustomerEmail() string {
	if o == nil || o.Customer == nil {
		return ""
	}
	return o.Customer.Email
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Customer != nil {
		cust := *o.Customer
		c.Customer = &cust
	}
	if o.Items != nil {
		c.Items = make([]Item, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

// ByCustomerEmail matches orders placed by email.
func ByCustomerEmail(email string) Predicate {
	return func(o *Order) bool {
		return o.CustomerEmail() == email
	}
}

// ByStatus matches orders in status.
func ByStatus(status string) Predicate {
	return func(o *Order) bool {
		return o.Status == status
	}
}
