package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 64

// Option configures a Broker.
type Option func(*brokerOptions)

type brokerOptions struct {
	bufferSize int
	replay     bool
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(size int) Option {
	return func(o *brokerOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// WithReplay makes new subscribers receive the most recently published
// event immediately, so late listeners start from current state.
func WithReplay() Option {
	return func(o *brokerOptions) { o.replay = true }
}

// Broker is a generic pub/sub event broker.
// Delivery is non-blocking: a subscriber whose buffer is full misses events.
type Broker[T any] struct {
	subs map[chan Event[T]]struct{}
	mu   sync.RWMutex
	done chan struct{}
	opts brokerOptions

	last    Event[T]
	hasLast bool
}

// NewBroker creates a new broker. Without options each subscriber gets a
// 64 event buffer and no replay.
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := brokerOptions{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broker[T]{
		subs: make(map[chan Event[T]]struct{}),
		done: make(chan struct{}),
		opts: o,
	}
}

// Subscribe creates a new subscription channel.
// The channel is closed when ctx is cancelled or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := make(chan Event[T], b.opts.bufferSize)
	b.subs[sub] = struct{}{}
	if b.opts.replay && b.hasLast {
		sub <- b.last
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed() {
			return
		}
		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

// Publish sends an event to all subscribers.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	// Write lock: the replay slot is mutated alongside delivery so a
	// concurrent Subscribe never sees an event twice.
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		return
	}

	if b.opts.replay {
		b.last = event
		b.hasLast = true
	}

	for sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close shuts down the broker and all subscriber channels. Idempotent.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		return
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker[T]) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
