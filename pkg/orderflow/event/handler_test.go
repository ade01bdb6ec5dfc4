package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/orderflow/internal/logtest"
)

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware[string] {
		return func(next Handler[string]) Handler[string] {
			return HandlerFunc[string](func(ctx context.Context, evt string) error {
				calls = append(calls, name)
				return next.Handle(ctx, evt)
			})
		}
	}

	h := Chain[string](HandlerFunc[string](func(_ context.Context, _ string) error {
		calls = append(calls, "handler")
		return nil
	}), tag("outer"), tag("inner"))

	require.NoError(t, h.Handle(context.Background(), "x"))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestRecovery(t *testing.T) {
	evt := &OrderAggregate{Meta: NewMetadata(TypeOrderAggregate, WithEventID("agg-1"))}
	h := Chain[*OrderAggregate](
		HandlerFunc[*OrderAggregate](func(_ context.Context, _ *OrderAggregate) error {
			panic("boom")
		}),
		Recovery[*OrderAggregate]("listener"),
	)

	err := h.Handle(context.Background(), evt)
	require.Error(t, err)

	var evtErr *EventError
	require.True(t, errors.As(err, &evtErr))
	assert.Equal(t, "agg-1", evtErr.EventID)
	assert.Equal(t, "listener", evtErr.Stage)
	assert.Contains(t, evtErr.Error(), "boom")
}

func TestRecovery_PassesThroughErrors(t *testing.T) {
	want := errors.New("plain failure")
	h := Recovery[string]("s")(HandlerFunc[string](func(_ context.Context, _ string) error {
		return want
	}))

	assert.Same(t, want, h.Handle(context.Background(), "x"))
}

func TestLogging(t *testing.T) {
	logs := logtest.New()
	fail := errors.New("nope")
	calls := 0
	h := Logging[string](logs.Logger(), "router")(HandlerFunc[string](func(_ context.Context, _ string) error {
		calls++
		if calls == 2 {
			return fail
		}
		return nil
	}))

	require.NoError(t, h.Handle(context.Background(), "a"))
	assert.ErrorIs(t, h.Handle(context.Background(), "b"), fail)

	records := logs.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "handler completed", records[0]["msg"])
	assert.Equal(t, "DEBUG", records[0]["level"])
	assert.Equal(t, "handler failed", records[1]["msg"])
	assert.Equal(t, "nope", records[1]["error"])
	assert.Equal(t, "router", records[1]["stage"])
}

func TestLogging_NilLogger(t *testing.T) {
	inner := HandlerFunc[string](func(_ context.Context, _ string) error { return nil })
	h := Logging[string](nil, "x")(inner)
	assert.NoError(t, h.Handle(context.Background(), "y"))
}

func TestEventError(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  *EventError
		want string
	}{
		{"message only", &EventError{Message: "bad"}, "bad"},
		{"with stage", &EventError{Stage: "notify", Message: "bad"}, "notify: bad"},
		{"with cause", &EventError{Stage: "notify", Message: "bad", Err: cause}, "notify: bad: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	assert.ErrorIs(t, &EventError{Err: cause}, cause)
}
