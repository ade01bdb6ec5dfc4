package orderflow_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/orderflow/internal/logtest"
	"github.com/randalmurphal/orderflow/pkg/orderflow"
	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/filter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, opts ...orderflow.Option) *orderflow.Pipeline {
	t.Helper()
	opts = append([]orderflow.Option{orderflow.WithClock(func() time.Time { return fixedNow })}, opts...)
	p := orderflow.New(orderflow.DefaultSettings(), opts...)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newOrder(id int64, email, total string) *store.Order {
	return &store.Order{
		ID:        id,
		Customer:  &store.Customer{Email: email},
		Status:    "CREATED",
		Total:     decimal.RequireFromString(total),
		OrderDate: fixedNow.Add(-time.Duration(id) * time.Minute),
	}
}

func TestScenarioA_StandardOrder(t *testing.T) {
	p := newPipeline(t)

	p.Publish(context.Background(), newOrder(1, "a@x.com", "89.90"))

	assert.Equal(t, int64(1), p.StandardHandled())
	assert.Empty(t, p.FlaggedHighValue())

	notes := p.RecentNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(1), notes[0].OrderID)
	assert.Equal(t, "a@x.com", notes[0].CustomerEmail)
	assert.True(t, decimal.RequireFromString("89.90").Equal(notes[0].Total))

	assert.Empty(t, p.RecentAggregates())
	assert.Equal(t, 1, p.PendingAggregate("a@x.com"))
	assert.Empty(t, p.DeadLetters())
}

func TestScenarioB_AggregateFires(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.Publish(ctx, newOrder(1, "b@x.com", "10.00"))
	p.Publish(ctx, newOrder(2, "b@x.com", "20.00"))
	p.Publish(ctx, newOrder(3, "b@x.com", "30.00"))

	aggs := p.RecentAggregates()
	require.Len(t, aggs, 1)
	assert.Equal(t, "b@x.com", aggs[0].CustomerEmail)
	assert.Equal(t, 3, aggs[0].Count)
	assert.Equal(t, "60.00", aggs[0].Total.StringFixed(2))
	assert.True(t, newOrder(3, "", "0").OrderDate.Equal(aggs[0].LastCreatedAt))
	assert.Equal(t, 0, p.PendingAggregate("b@x.com"))

	p.Publish(ctx, newOrder(4, "b@x.com", "40.00"))
	assert.Len(t, p.RecentAggregates(), 1)
	assert.Equal(t, 1, p.PendingAggregate("b@x.com"))
}

func TestScenarioC_ZeroTotalIsDeadLettered(t *testing.T) {
	p := newPipeline(t)

	before := len(p.DeadLetters())
	p.Publish(context.Background(), newOrder(1, "c@x.com", "0"))

	letters := p.DeadLetters()
	require.Len(t, letters, before+1)
	assert.Equal(t, filter.RejectReason, letters[0].Reason)
	assert.Equal(t, "OrderCreated", letters[0].Type)
	assert.Equal(t, fixedNow, letters[0].CreatedAt)

	assert.Equal(t, int64(0), p.StandardHandled())
	assert.Empty(t, p.FlaggedHighValue())
	assert.Empty(t, p.RecentNotifications())
	assert.Equal(t, 0, p.PendingAggregate("c@x.com"))
}

func TestScenarioD_HighValue(t *testing.T) {
	p := newPipeline(t)

	p.Publish(context.Background(), newOrder(1, "d@x.com", "750.00"))

	flagged := p.FlaggedHighValue()
	require.Len(t, flagged, 1)
	assert.Equal(t, int64(1), flagged[0].OrderID)
	assert.Equal(t, int64(0), p.StandardHandled())
	assert.Len(t, p.RecentNotifications(), 1)
}

func TestBoundaryIsHighValue(t *testing.T) {
	p := newPipeline(t)

	p.Publish(context.Background(), newOrder(1, "e@x.com", "500.00"))
	p.Publish(context.Background(), newOrder(2, "e@x.com", "499.99"))

	flagged := p.FlaggedHighValue()
	require.Len(t, flagged, 1)
	assert.Equal(t, int64(1), flagged[0].OrderID)
	assert.Equal(t, int64(1), p.StandardHandled())
}

func TestRejectionsNeverReachConsumers(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	noID := newOrder(0, "f@x.com", "10")
	blank := newOrder(2, "   ", "10")
	pending := newOrder(3, "f@x.com", "10")
	pending.Status = "PENDING"
	negative := newOrder(4, "f@x.com", "-3")
	noCustomer := newOrder(5, "", "10")
	noCustomer.Customer = nil

	for _, o := range []*store.Order{noID, blank, pending, negative, noCustomer} {
		p.Publish(ctx, o)
	}

	letters := p.DeadLetters()
	require.Len(t, letters, 5)
	for _, dl := range letters {
		assert.Equal(t, filter.RejectReason, dl.Reason)
	}
	assert.Empty(t, p.RecentNotifications())
	assert.Empty(t, p.FlaggedHighValue())
	assert.Equal(t, int64(0), p.StandardHandled())
}

func TestLowercaseStatusIsAccepted(t *testing.T) {
	p := newPipeline(t)
	o := newOrder(1, "g@x.com", "10")
	o.Status = "created"

	p.Publish(context.Background(), o)

	notes := p.RecentNotifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "created", notes[0].Status)
	assert.Empty(t, p.DeadLetters())
}

func TestPublishNilIsNoop(t *testing.T) {
	p := newPipeline(t)

	p.Publish(context.Background(), nil)
	p.PublishEvent(context.Background(), nil)

	assert.Empty(t, p.DeadLetters())
	assert.Empty(t, p.RecentNotifications())
}

func TestPublishEvent_NullTotal(t *testing.T) {
	p := newPipeline(t)
	id := int64(9)

	p.PublishEvent(context.Background(),
		event.NewOrderCreated(&id, "h@x.com", decimal.NullDecimal{}, "CREATED", time.Time{}))

	require.Len(t, p.DeadLetters(), 1)
	assert.Empty(t, p.RecentNotifications())
}

func TestDeadLettersReadIdempotentAndClear(t *testing.T) {
	p := newPipeline(t)
	p.Publish(context.Background(), newOrder(1, "", "10"))
	p.ReportDeadLetter(context.Background(), map[string]any{"sku": "X"}, "Invalid order request: out of stock")

	first := p.DeadLetters()
	second := p.DeadLetters()
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "Invalid order request: out of stock", first[0].Reason)

	p.ClearDeadLetters()
	assert.Empty(t, p.DeadLetters())
}

func TestClearNotifications(t *testing.T) {
	p := newPipeline(t)
	p.Publish(context.Background(), newOrder(1, "i@x.com", "10"))
	p.ClearNotifications()
	assert.Empty(t, p.RecentNotifications())
}

func TestBoundedReadSurfaces(t *testing.T) {
	settings := orderflow.DefaultSettings()
	settings.FlaggedCapacity = 2
	settings.NotificationCapacity = 3
	settings.DeadLetterCapacity = 4
	settings.AggregateCapacity = 1
	settings.BatchSize = 1
	p := orderflow.New(settings)
	defer p.Close()
	ctx := context.Background()

	for i := int64(1); i <= 10; i++ {
		p.Publish(ctx, newOrder(i, fmt.Sprintf("u%d@x.com", i), "600"))
		p.Publish(ctx, newOrder(100+i, "", "1"))
	}

	assert.Len(t, p.FlaggedHighValue(), 2)
	assert.Equal(t, int64(10), p.FlaggedHighValue()[0].OrderID)
	assert.Len(t, p.RecentNotifications(), 3)
	assert.Len(t, p.DeadLetters(), 4)
	require.Len(t, p.RecentAggregates(), 1)
	assert.Equal(t, "u10@x.com", p.RecentAggregates()[0].CustomerEmail)
}

func TestConcurrentPublish(t *testing.T) {
	settings := orderflow.DefaultSettings()
	settings.NotificationCapacity = 10_000
	settings.AggregateCapacity = 10_000
	settings.DeadLetterCapacity = 10_000
	p := orderflow.New(settings)
	defer p.Close()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	const perWorker = 30
	const workers = 8

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := int64(w*perWorker + i + 1)
				email := emails[int(id)%len(emails)]
				total := "25.00"
				if i%5 == 0 {
					total = "0"
				}
				p.Publish(context.Background(), newOrder(id, email, total))
			}
		}(w)
	}
	wg.Wait()

	rejected := workers * (perWorker / 5)
	accepted := workers*perWorker - rejected

	assert.Len(t, p.DeadLetters(), rejected)
	assert.Len(t, p.RecentNotifications(), accepted)
	assert.Equal(t, int64(accepted), p.StandardHandled())

	aggregated := 0
	for _, agg := range p.RecentAggregates() {
		assert.Equal(t, 3, agg.Count)
		assert.Equal(t, "75.00", agg.Total.StringFixed(2))
		aggregated += agg.Count
	}
	for _, email := range emails {
		aggregated += p.PendingAggregate(email)
	}
	assert.Equal(t, accepted, aggregated)
}

func TestPipelineLogs(t *testing.T) {
	logs := logtest.New()
	p := newPipeline(t, orderflow.WithLogger(logs.Logger()))

	p.Publish(context.Background(), newOrder(1, "a@x.com", "750"))
	p.Publish(context.Background(), newOrder(2, "a@x.com", "0"))

	msgs := strings.Join(logs.Messages(), "|")
	assert.Contains(t, msgs, "high-value order flagged for review")
	assert.Contains(t, msgs, "order notification recorded")
	assert.Contains(t, msgs, "order event rejected")
	assert.Contains(t, msgs, "dead letter reported")
	assert.Contains(t, msgs, "order event published")
}

func TestSettingsNormalized(t *testing.T) {
	p := orderflow.New(orderflow.Settings{})
	defer p.Close()

	assert.Equal(t, orderflow.DefaultSettings(), p.Settings())
}

func TestOrderCreatedFrom(t *testing.T) {
	assert.Nil(t, orderflow.OrderCreatedFrom(nil, fixedNow))

	t.Run("maps fields", func(t *testing.T) {
		o := newOrder(12, "a@x.com", "42.10")
		evt := orderflow.OrderCreatedFrom(o, fixedNow)

		require.NotNil(t, evt.OrderID)
		assert.Equal(t, int64(12), *evt.OrderID)
		assert.Equal(t, "a@x.com", evt.CustomerEmail)
		assert.True(t, evt.Total.Valid)
		assert.Equal(t, "42.1", evt.Total.Decimal.String())
		assert.Equal(t, "CREATED", evt.Status)
		assert.Equal(t, o.OrderDate, evt.CreatedAt)
		assert.Equal(t, fixedNow, evt.Meta.Timestamp)
		assert.Equal(t, event.TypeOrderCreated, evt.Meta.EventType)
	})

	t.Run("defaults", func(t *testing.T) {
		evt := orderflow.OrderCreatedFrom(&store.Order{}, fixedNow)

		assert.Nil(t, evt.OrderID)
		assert.Empty(t, evt.CustomerEmail)
		assert.Equal(t, fixedNow, evt.CreatedAt)
	})

	t.Run("does not alias the order id", func(t *testing.T) {
		o := newOrder(5, "a@x.com", "1")
		evt := orderflow.OrderCreatedFrom(o, fixedNow)
		o.ID = 6
		assert.Equal(t, int64(5), *evt.OrderID)
	})
}
