package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow"
	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/ring"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

func benchOrder(id int64, email, total string) *store.Order {
	return &store.Order{
		ID:        id,
		Customer:  &store.Customer{Email: email},
		Status:    "CREATED",
		Total:     decimal.RequireFromString(total),
		OrderDate: time.Unix(1_700_000_000, 0),
	}
}

// BenchmarkPublish_Standard publishes accepted standard-route orders.
func BenchmarkPublish_Standard(b *testing.B) {
	p := orderflow.New(orderflow.DefaultSettings())
	defer func() { _ = p.Close() }()
	ctx := context.Background()
	o := benchOrder(1, "a@x.com", "89.90")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Publish(ctx, o)
	}
}

// BenchmarkPublish_HighValue publishes orders that land in the review queue.
func BenchmarkPublish_HighValue(b *testing.B) {
	p := orderflow.New(orderflow.DefaultSettings())
	defer func() { _ = p.Close() }()
	ctx := context.Background()
	o := benchOrder(1, "a@x.com", "750.00")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Publish(ctx, o)
	}
}

// BenchmarkPublish_Rejected publishes orders the filter dead-letters.
func BenchmarkPublish_Rejected(b *testing.B) {
	p := orderflow.New(orderflow.DefaultSettings())
	defer func() { _ = p.Close() }()
	ctx := context.Background()
	o := benchOrder(1, "a@x.com", "0")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Publish(ctx, o)
	}
}

// BenchmarkPublish_ParallelCustomers spreads orders across customers so
// aggregate buckets run in parallel.
func BenchmarkPublish_ParallelCustomers(b *testing.B) {
	p := orderflow.New(orderflow.DefaultSettings())
	defer func() { _ = p.Close() }()
	ctx := context.Background()

	orders := make([]*store.Order, 64)
	for i := range orders {
		orders[i] = benchOrder(int64(i+1), fmt.Sprintf("c%d@x.com", i), "25.00")
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			p.Publish(ctx, orders[i%len(orders)])
			i++
		}
	})
}

// BenchmarkPublish_SingleCustomer contends on one aggregate bucket.
func BenchmarkPublish_SingleCustomer(b *testing.B) {
	p := orderflow.New(orderflow.DefaultSettings())
	defer func() { _ = p.Close() }()
	ctx := context.Background()
	o := benchOrder(1, "hot@x.com", "25.00")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p.Publish(ctx, o)
		}
	})
}

// BenchmarkBus_FanOut measures delivery to three no-op subscribers.
func BenchmarkBus_FanOut(b *testing.B) {
	bus := event.NewBus(event.BusConfig[int]{})
	noop := event.HandlerFunc[int](func(context.Context, int) error { return nil })
	for _, name := range []string{"a", "b", "c"} {
		bus.Subscribe(name, noop)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(ctx, i)
	}
}

// BenchmarkRing_Insert measures inserts into a full ring.
func BenchmarkRing_Insert(b *testing.B) {
	r := ring.New[int](50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Insert(i)
	}
}

// BenchmarkRing_Snapshot measures newest-first copies of a full ring.
func BenchmarkRing_Snapshot(b *testing.B) {
	r := ring.New[int](50)
	for i := 0; i < 50; i++ {
		r.Insert(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Snapshot()
	}
}
