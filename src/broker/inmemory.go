package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("broker is closed")

// subscriberBuffer is the channel capacity of each in-memory subscriber.
const subscriberBuffer = 100

// InMemoryBroker delivers every message to every subscriber of its topic.
// Keys and consumer groups are kept on the Message but do not affect routing.
type InMemoryBroker struct {
	// mu is held for reading while publishing and for writing while a
	// subscriber channel is closed.
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	offset    atomic.Int64
}

type subscriber struct {
	ch       chan Message
	gone     chan struct{}
	goneOnce sync.Once
}

func (s *subscriber) leave() {
	s.goneOnce.Do(func() { close(s.gone) })
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs: make(map[string]map[*subscriber]struct{}),
		done: make(chan struct{}),
	}
}

// Publish blocks until every current subscriber of topic has accepted the
// message, ctx is done, or the broker closes.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offset.Add(1) - 1,
		Timestamp: time.Now().UnixMilli(),
	}
	for s := range b.subs[topic] {
		select {
		case s.ch <- msg:
		case <-s.gone:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrClosed
		}
	}
	return nil
}

// Subscribe returns a channel of messages published to topic after the call.
// The channel is closed when ctx is done or the broker closes.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	s := &subscriber{
		ch:   make(chan Message, subscriberBuffer),
		gone: make(chan struct{}),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscriber]struct{})
	}
	b.subs[topic][s] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			s.leave()
			b.unsubscribe(topic, s)
		case <-b.done:
		}
	}()

	return s.ch, nil
}

// Subscribers returns the number of open subscriptions to topic.
func (b *InMemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *InMemoryBroker) unsubscribe(topic string, s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[topic][s]; !ok {
		return
	}
	delete(b.subs[topic], s)
	close(s.ch)
}

// Close closes every subscriber channel. Further calls are no-ops.
func (b *InMemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for s := range subs {
			close(s.ch)
		}
		delete(b.subs, topic)
	}
	return nil
}
