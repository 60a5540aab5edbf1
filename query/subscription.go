package query

import (
	"sync"
)

// Subscription streams snapshots of one cache entry. The channel holds at
// most one pending snapshot; a newer snapshot replaces an unread older one.
type Subscription struct {
	id    string
	key   Key
	ch    chan Entry
	cache *Cache

	mu     sync.Mutex
	closed bool
}

// ID returns the subscription's unique id
func (s *Subscription) ID() string {
	return s.id
}

// Key returns the entry key being watched
func (s *Subscription) Key() Key {
	return s.key
}

// C returns the snapshot channel. It is closed by Close.
func (s *Subscription) C() <-chan Entry {
	return s.ch
}

// Close releases the subscription. No snapshot is delivered after Close
// returns. It is safe to call more than once.
func (s *Subscription) Close() {
	s.cache.unsubscribe(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver pushes a snapshot without blocking
func (s *Subscription) deliver(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case <-s.ch:
	default:
	}
	s.ch <- e
}
