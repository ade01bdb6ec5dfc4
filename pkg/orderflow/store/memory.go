package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory order store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[int64]*Order
	nextID int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[int64]*Order),
	}
}

// FindByID implements Store.
func (m *MemoryStore) FindByID(_ context.Context, id int64) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if order.ID == 0 {
		m.nextID++
		order.ID = m.nextID
	} else if order.ID > m.nextID {
		m.nextID = order.ID
	}

	// Store a copy so later caller mutations are not visible.
	m.orders[order.ID] = order.Clone()
	return nil
}

// Query implements Store.
func (m *MemoryStore) Query(_ context.Context, pred Predicate) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []*Order
	for _, o := range m.orders {
		if pred == nil || pred(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.orders = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
