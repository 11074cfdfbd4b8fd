package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got1, got2 []EventType

	sub1, err := bus.Register(SubscriberFunc(func(_ context.Context, e Event) error {
		got1 = append(got1, e.Type)
		return nil
	}))
	require.NoError(t, err)
	defer sub1.Close()

	sub2, err := bus.Register(SubscriberFunc(func(_ context.Context, e Event) error {
		got2 = append(got2, e.Type)
		return nil
	}))
	require.NoError(t, err)
	defer sub2.Close()

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventAgentStarted}))
	require.Equal(t, []EventType{EventAgentStarted}, got1)
	require.Equal(t, []EventType{EventAgentStarted}, got2)
}

func TestPublishStopsAtFirstSubscriberError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")

	_, err := bus.Register(SubscriberFunc(func(context.Context, Event) error {
		return boom
	}))
	require.NoError(t, err)

	err = bus.Publish(context.Background(), Event{Type: EventAgentFailed})
	require.ErrorIs(t, err, boom)
}

func TestCloseUnregistersSubscriber(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub, err := bus.Register(SubscriberFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{}))
	require.Equal(t, 1, calls)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "Close must be idempotent")

	require.NoError(t, bus.Publish(context.Background(), Event{}))
	require.Equal(t, 1, calls, "unregistered subscriber should not receive further events")
}

func TestRegisterRejectsNilSubscriber(t *testing.T) {
	bus := NewBus()
	_, err := bus.Register(nil)
	require.Error(t, err)
}
