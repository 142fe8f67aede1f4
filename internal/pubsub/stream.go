// Package pubsub provides a fire-and-forget broadcast stream.
//
// One owner publishes; any number of consumers subscribe and unsubscribe
// independently. There is no replay for late subscribers and no delivery
// guarantee for slow ones: a subscriber whose buffer is full misses the
// value instead of stalling the publisher or its siblings.
package pubsub

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber buffer used when none is given.
const DefaultBuffer = 64

// Stream is a multi-subscriber broadcast of values of type T.
// A Stream is safe for concurrent use.
type Stream[T any] struct {
	mu   sync.RWMutex
	subs map[uint64]chan T
	next uint64

	dropped atomic.Uint64
}

// New creates an empty stream.
func New[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[uint64]chan T)}
}

// Subscribe attaches a consumer with the given buffer size. The returned
// function detaches it and closes its channel; calling it more than once is
// harmless.
func (s *Stream[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan T, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Stream[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Publish delivers v to every current subscriber without blocking.
// It returns the number of subscribers that received the value.
func (s *Stream[T]) Publish(v T) int {
	// Sends happen under the read lock so unsubscribe cannot close a
	// channel mid-send.
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for _, ch := range s.subs {
		select {
		case ch <- v:
			delivered++
		default:
			s.dropped.Add(1)
		}
	}
	return delivered
}

// Dropped returns how many deliveries were skipped because a subscriber
// buffer was full.
func (s *Stream[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Subscribers returns the number of attached consumers.
func (s *Stream[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
