package theme

import (
	"sync/atomic"
)

// Store holds the active theme. Reads never block and every swap replaces
// the whole theme at once, so a render sees either the old or the new
// palette and never a mix.
type Store struct {
	active atomic.Pointer[Theme]
}

// NewStore creates a store starting in mode
func NewStore(mode Mode) *Store {
	s := &Store{}
	s.Set(mode)
	return s
}

// Active returns the current theme
func (s *Store) Active() Theme {
	return *s.active.Load()
}

// Set switches to mode and returns the new theme
func (s *Store) Set(mode Mode) Theme {
	t := ForMode(mode)
	s.active.Store(&t)
	return t
}

// Toggle flips between light and dark and returns the new theme
func (s *Store) Toggle() Theme {
	for {
		current := s.active.Load()
		next := ForMode(current.Mode.Opposite())
		if s.active.CompareAndSwap(current, &next) {
			return next
		}
	}
}
