package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return event
	case <-time.After(100 * time.Millisecond):
		require.FailNow(t, "timeout waiting for event")
	}
	return Event[T]{}
}

func TestBroker_DeliversToEverySubscriber(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[int]{broker.Subscribe(ctx), broker.Subscribe(ctx)}
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(CompletedEvent, 7)

	for _, ch := range subs {
		event := receive(t, ch)
		require.Equal(t, 7, event.Payload)
		require.Equal(t, CompletedEvent, event.Type)
		require.False(t, event.Timestamp.IsZero())
	}
}

func TestBroker_UnsubscribesOnContextCancel(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 },
		time.Second, 5*time.Millisecond)
	_, ok := <-ch
	require.False(t, ok)
}

func TestBroker_DropsWhenSubscriberFull(t *testing.T) {
	broker := NewBroker[int](WithBuffer(1))
	defer broker.Close()

	ch := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		broker.Publish(UpdatedEvent, 1)
		broker.Publish(UpdatedEvent, 2)
		broker.Publish(UpdatedEvent, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		require.FailNow(t, "Publish blocked on a full subscriber")
	}
	require.Equal(t, 1, receive(t, ch).Payload)
}

func TestBroker_ReplayDeliversLatestToLateSubscriber(t *testing.T) {
	broker := NewBroker[string](WithReplay())
	defer broker.Close()

	broker.Publish(UpdatedEvent, "first")
	broker.Publish(UpdatedEvent, "second")

	ch := broker.Subscribe(context.Background())
	require.Equal(t, "second", receive(t, ch).Payload)

	select {
	case event := <-ch:
		require.FailNow(t, "unexpected extra event", "%v", event.Payload)
	default:
	}
}

func TestBroker_NoReplayByDefault(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	broker.Publish(UpdatedEvent, "before")
	ch := broker.Subscribe(context.Background())

	select {
	case event := <-ch:
		require.FailNow(t, "unexpected replayed event", "%v", event.Payload)
	default:
	}
}

func TestBroker_CloseIsIdempotentAndFinal(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Equal(t, 0, broker.SubscriberCount())

	late := broker.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribe after close returns a closed channel")

	broker.Publish(UpdatedEvent, "ignored")
}
