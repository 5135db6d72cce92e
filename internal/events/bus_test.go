// internal/events/bus_test.go
package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	received := make(chan Event, 1)
	bus.SubscribeFunc(TradeExecuted, func(_ context.Context, e Event) error {
		received <- e
		return nil
	})

	marketID := uuid.New()
	require.NoError(t, bus.Publish(TradeExecutedEvent{
		BaseEvent: NewBase(TradeExecuted),
		MarketID:  marketID,
		Side:      "buy",
		Amount:    100,
		Value:     123_321,
	}))

	select {
	case e := <-received:
		trade, ok := e.(TradeExecutedEvent)
		require.True(t, ok)
		assert.Equal(t, marketID, trade.MarketID)
		assert.Equal(t, uint64(123_321), trade.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusDoesNotDeliverOtherTypes(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	received := make(chan Event, 1)
	bus.SubscribeFunc(MarketSettled, func(_ context.Context, e Event) error {
		received <- e
		return nil
	})

	require.NoError(t, bus.PublishSync(context.Background(), PriceUpdatedEvent{
		BaseEvent: NewBase(PriceUpdated),
	}))

	select {
	case <-received:
		t.Fatal("handler received an event type it never subscribed to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	received := make(chan Event, 1)
	sub := bus.SubscribeFunc(PriceUpdated, func(_ context.Context, e Event) error {
		received <- e
		return nil
	})
	sub.Unsubscribe()

	require.NoError(t, bus.PublishSync(context.Background(), PriceUpdatedEvent{
		BaseEvent: NewBase(PriceUpdated),
	}))

	select {
	case <-received:
		t.Fatal("unsubscribed handler still received an event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusRejectsPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	err := bus.Publish(PriceUpdatedEvent{BaseEvent: NewBase(PriceUpdated)})
	assert.Error(t, err)
}

func TestBusStats(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	noop := func(context.Context, Event) error { return nil }
	bus.SubscribeFunc(TradeExecuted, noop)
	bus.SubscribeFunc(TradeExecuted, noop)
	bus.SubscribeFunc(MarketSettled, noop)

	stats := bus.Stats()
	assert.Equal(t, 2, stats.HandlersPerType[TradeExecuted])
	assert.Equal(t, 1, stats.HandlersPerType[MarketSettled])
	assert.Zero(t, stats.Dropped)
}
