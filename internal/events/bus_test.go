package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, Topic("s1"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(Topic("s1"), Event{Type: MessageAppended, SessionID: "s1", Index: 1, Text: "..."}))
	require.NoError(t, bus.Publish(Topic("s1"), Event{Type: MessageUpdated, SessionID: "s1", Index: 1, Text: "Hi. "}))
	require.NoError(t, bus.Publish(Topic("s1"), Event{Type: RevealDone, SessionID: "s1", Index: 1}))

	first := receive(t, ch)
	assert.Equal(t, MessageAppended, first.Type)
	assert.False(t, first.At.IsZero())
	assert.Equal(t, MessageUpdated, receive(t, ch).Type)
	assert.Equal(t, RevealDone, receive(t, ch).Type)
}

func TestBusTopicsAreIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, Topic("a"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(Topic("b"), Event{Type: MessageAppended, SessionID: "b"}))
	require.NoError(t, bus.Publish(Topic("a"), Event{Type: BusyChanged, SessionID: "a", Busy: true}))

	e := receive(t, ch)
	assert.Equal(t, "a", e.SessionID)
	assert.True(t, e.Busy)
}

func TestBusSubscriptionEndsWithContext(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, Topic("x"))
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel was not closed")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer bus.Close()
	assert.NoError(t, bus.Publish(Topic("nobody"), Event{Type: RevealDone}))
}
