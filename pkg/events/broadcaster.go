// Package events provides a channel fan-out used for tree updates, node
// status changes, navigation state and the shared error stream.
package events

import "sync"

// Broadcaster fans values out to subscriber channels. Publish is
// non-blocking: values are dropped for slow consumers.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[chan T]struct{}
	replay      bool
	hasLast     bool
	last        T
}

// NewBroadcaster creates a broadcaster without replay: subscribers only see
// values published after they subscribe.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subscribers: make(map[chan T]struct{})}
}

// NewReplayBroadcaster creates a broadcaster that delivers the most recent
// published value to new subscribers.
func NewReplayBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subscribers: make(map[chan T]struct{}),
		replay:      true,
	}
}

// Subscribe adds a subscriber and returns its channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch := make(chan T, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	if b.replay && b.hasLast {
		ch <- b.last
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends a value to all subscribers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	if b.replay {
		b.last = v
		b.hasLast = true
	}
	for ch := range b.subscribers {
		select {
		case ch <- v:
		default:
			// Drop value for slow consumer
		}
	}
	b.mu.Unlock()
}

// Latest returns the most recent published value, if any.
// Only meaningful for replay broadcasters.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}

// Count returns the current number of subscribers.
func (b *Broadcaster[T]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
