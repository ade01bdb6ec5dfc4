package event

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNewMetadata_Defaults(t *testing.T) {
	meta := NewMetadata(TypeOrderCreated)

	assert.NotEmpty(t, meta.EventID)
	assert.Equal(t, TypeOrderCreated, meta.EventType)
	assert.Equal(t, meta.EventID, meta.CorrelationID, "root event correlates with itself")
	assert.Empty(t, meta.CausationID)
	assert.False(t, meta.Timestamp.IsZero())
}

func TestNewMetadata_Options(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := NewMetadata(TypeOrderAggregate,
		WithEventID("evt-1"),
		WithCorrelationID("corr-1"),
		WithCausationID("cause-1"),
		WithTimestamp(ts),
	)

	assert.Equal(t, "evt-1", meta.EventID)
	assert.Equal(t, "corr-1", meta.CorrelationID)
	assert.Equal(t, "cause-1", meta.CausationID)
	assert.Equal(t, ts, meta.Timestamp)
}

func TestDeriveMetadata(t *testing.T) {
	parent := NewMetadata(TypeOrderCreated, WithCorrelationID("corr-7"))
	child := DeriveMetadata(parent, TypeFilteredOrderCreated)

	assert.NotEqual(t, parent.EventID, child.EventID)
	assert.Equal(t, "corr-7", child.CorrelationID)
	assert.Equal(t, parent.EventID, child.CausationID)
	assert.Equal(t, TypeFilteredOrderCreated, child.EventType)
}

func TestNewOrderCreated(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("copies order id", func(t *testing.T) {
		id := int64(5)
		evt := NewOrderCreated(&id, "a@x.com", decimal.NewNullDecimal(decimal.RequireFromString("10.00")), "CREATED", ts)
		id = 99

		require.NotNil(t, evt.OrderID)
		assert.Equal(t, int64(5), *evt.OrderID)
		assert.Equal(t, int64(5), evt.OrderIDValue())
		assert.Equal(t, ts, evt.CreatedAt)
	})

	t.Run("zero createdAt defaults to event timestamp", func(t *testing.T) {
		evt := NewOrderCreated(nil, "", decimal.NullDecimal{}, "", time.Time{}, WithTimestamp(ts))

		assert.Equal(t, ts, evt.CreatedAt)
		assert.Nil(t, evt.OrderID)
		assert.Equal(t, int64(0), evt.OrderIDValue())
		assert.False(t, evt.Total.Valid)
	})
}

func TestFilteredFrom(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := NewOrderCreated(int64Ptr(8), "b@x.com",
		decimal.NewNullDecimal(decimal.RequireFromString("750.00")), "created", ts)

	filtered := FilteredFrom(raw)
	require.NotNil(t, filtered)

	assert.Equal(t, int64(8), filtered.OrderID)
	assert.Equal(t, "b@x.com", filtered.CustomerEmail)
	assert.True(t, decimal.RequireFromString("750").Equal(filtered.Total))
	assert.Equal(t, "created", filtered.Status, "original casing is preserved")
	assert.Equal(t, ts, filtered.CreatedAt)
	assert.Equal(t, raw.Meta.CorrelationID, filtered.Meta.CorrelationID)
	assert.Equal(t, raw.Meta.EventID, filtered.Meta.CausationID)
	assert.Equal(t, TypeFilteredOrderCreated, filtered.Meta.EventType)

	assert.Nil(t, FilteredFrom(nil))
}

func TestEventMeta_NilSafe(t *testing.T) {
	var raw *OrderCreated
	var filtered *FilteredOrderCreated
	var agg *OrderAggregate

	assert.Equal(t, Metadata{}, raw.EventMeta())
	assert.Equal(t, Metadata{}, filtered.EventMeta())
	assert.Equal(t, Metadata{}, agg.EventMeta())
	assert.Equal(t, int64(0), raw.OrderIDValue())
}

func TestNewOrderAggregate(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewOrderAggregate("c@x.com", 3, decimal.RequireFromString("60.00"), ts)

	assert.Equal(t, "c@x.com", agg.CustomerEmail)
	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, "60", agg.Total.String())
	assert.Equal(t, ts, agg.LastCreatedAt)
	assert.Equal(t, TypeOrderAggregate, agg.EventMeta().EventType)
}
