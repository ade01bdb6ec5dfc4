// Package ring provides a fixed-capacity, most-recent-first buffer.
//
// Every pipeline stage that remembers recent items (dead letters, flagged
// high-value orders, fired aggregates, notifications) keeps them in a Ring.
// Once full, each insert evicts the oldest entry.
package ring

import "sync"

// Ring is a bounded buffer safe for concurrent use.
// The zero value is not usable; create rings with New.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of the next write
	size  int
}

// New creates a ring holding at most capacity items.
// It panics if capacity is less than 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("ring: capacity must be at least 1")
	}
	return &Ring[T]{
		items: make([]T, capacity),
	}
}

// Insert adds item as the newest entry, evicting the oldest entry when
// the ring is already full.
func (r *Ring[T]) Insert(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Snapshot returns an independent copy of the contents, newest first.
// Later inserts do not affect the returned slice.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, r.size)
	n := len(r.items)
	for i := 0; i < r.size; i++ {
		// Walk backwards from the most recent write.
		out[i] = r.items[(r.head-1-i+n)%n]
	}
	return out
}

// Clear removes every entry. Capacity is unchanged.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}

// Len returns the number of entries currently held.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}
