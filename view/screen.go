// Package view turns cache entries into per-section display state.
//
// A screen is a set of sections, each bound to one cache key. Sections load,
// fail and render independently: one slow or failing request never holds back
// or breaks the others. Mounting a screen subscribes to every key; unmounting
// releases the subscriptions, after which the screen's state is frozen.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/marquee/query"
)

// ErrUnmounted is returned by Settle when the screen is unmounted while waiting
var ErrUnmounted = errors.New("screen unmounted")

// Watcher is the part of the request cache the coordinator needs
type Watcher interface {
	Watch(key query.Key) *query.Subscription
}

// Coordinator mounts screens against a request cache
type Coordinator struct {
	cache  Watcher
	logger zerolog.Logger
}

// NewCoordinator creates a coordinator on top of cache
func NewCoordinator(cache Watcher, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cache:  cache,
		logger: logger,
	}
}

// SectionState pairs a section name with its current state
type SectionState struct {
	Name  SectionName
	State Remote[any]
}

// SectionUpdate is emitted whenever a section changes state
type SectionUpdate struct {
	Screen  ScreenName
	Section SectionName
	State   Remote[any]
}

// Screen is a mounted screen
type Screen struct {
	spec   ScreenSpec
	logger zerolog.Logger

	mu        sync.Mutex
	states    map[SectionName]Remote[any]
	settled   map[SectionName]chan struct{}
	unmounted bool

	subs    []*query.Subscription
	updates chan SectionUpdate
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Mount subscribes to every section of spec. The returned screen already
// reflects whatever the cache holds; sections whose entries are settled start
// out Ready or Failed.
func (c *Coordinator) Mount(spec ScreenSpec) *Screen {
	s := &Screen{
		spec:    spec,
		logger:  c.logger.With().Str("screen", string(spec.Name)).Logger(),
		states:  make(map[SectionName]Remote[any], len(spec.Sections)),
		settled: make(map[SectionName]chan struct{}, len(spec.Sections)),
		updates: make(chan SectionUpdate, 2*len(spec.Sections)),
		done:    make(chan struct{}),
	}

	for _, sec := range spec.Sections {
		sub := c.cache.Watch(sec.Key)
		s.subs = append(s.subs, sub)

		// Watch leaves the current snapshot on the channel
		state := sec.resolve(<-sub.C())
		s.states[sec.Name] = state
		s.settled[sec.Name] = make(chan struct{})
		if !state.IsLoading() {
			close(s.settled[sec.Name])
		}
	}

	for i, sec := range spec.Sections {
		s.wg.Add(1)
		go s.follow(sec, s.subs[i])
	}

	s.logger.Debug().Int("sections", len(spec.Sections)).Msg("Mounted screen")

	return s
}

// follow applies snapshots for one section until its subscription closes
func (s *Screen) follow(sec SectionSpec, sub *query.Subscription) {
	defer s.wg.Done()

	for entry := range sub.C() {
		s.apply(sec, entry)
	}
}

func (s *Screen) apply(sec SectionSpec, entry query.Entry) {
	next := sec.resolve(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return
	}

	prev := s.states[sec.Name]
	if prev.State == next.State && next.IsLoading() {
		return
	}
	s.states[sec.Name] = next

	if prev.IsLoading() && !next.IsLoading() {
		close(s.settled[sec.Name])
	}

	update := SectionUpdate{Screen: s.spec.Name, Section: sec.Name, State: next}
	select {
	case s.updates <- update:
	default:
		s.logger.Warn().Str("section", string(sec.Name)).Msg("Update channel full, dropping section update")
	}

	s.logger.Debug().
		Str("section", string(sec.Name)).
		Str("state", next.State.String()).
		Msg("Section changed")
}

// Spec returns the spec the screen was mounted with
func (s *Screen) Spec() ScreenSpec {
	return s.spec
}

// Updates streams section changes. It is closed by Unmount.
func (s *Screen) Updates() <-chan SectionUpdate {
	return s.updates
}

// Section returns the current state of one section
func (s *Screen) Section(name SectionName) (Remote[any], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[name]
	return state, ok
}

// Snapshot returns every section's state in display order
func (s *Screen) Snapshot() []SectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]SectionState, 0, len(s.spec.Sections))
	for _, sec := range s.spec.Sections {
		snapshot = append(snapshot, SectionState{Name: sec.Name, State: s.states[sec.Name]})
	}
	return snapshot
}

// Settled reports whether every section has left Loading
func (s *Screen) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, state := range s.states {
		if state.IsLoading() {
			return false
		}
	}
	return true
}

// Settle blocks until every section has left Loading. It returns ctx.Err()
// if ctx ends first and ErrUnmounted if the screen is unmounted first.
func (s *Screen) Settle(ctx context.Context) error {
	s.mu.Lock()
	waits := make([]chan struct{}, 0, len(s.settled))
	for _, ch := range s.settled {
		waits = append(waits, ch)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, settled := range waits {
		g.Go(func() error {
			select {
			case <-settled:
				return nil
			default:
			}

			select {
			case <-settled:
				return nil
			case <-s.done:
				return ErrUnmounted
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	return g.Wait()
}

// Unmount releases every subscription. The screen's state does not change
// afterwards and the Updates channel is closed. It is safe to call more than
// once.
func (s *Screen) Unmount() {
	s.once.Do(func() {
		s.mu.Lock()
		s.unmounted = true
		s.mu.Unlock()

		close(s.done)
		for _, sub := range s.subs {
			sub.Close()
		}
		s.wg.Wait()
		close(s.updates)

		s.logger.Debug().Msg("Unmounted screen")
	})
}
