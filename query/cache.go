// Package query implements the session-lifetime request cache that sits
// between screens and the TMDB client.
//
// Every request is identified by a Key. The first Get for a key creates a
// pending entry and starts exactly one resolver call; every later Get for
// the same key, whether the entry is still pending or already settled,
// shares that entry. Entries move only from pending to success or error and
// are never evicted; Invalidate is the only way to start over.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/s0up4200/marquee/tmdb"
)

// ErrClosed is reported by entries started after the cache was closed
var ErrClosed = errors.New("request cache is closed")

// Resolver fetches the value for a key
type Resolver interface {
	Resolve(ctx context.Context, key Key) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, key Key) (any, error)

// Resolve calls f(ctx, key)
func (f ResolverFunc) Resolve(ctx context.Context, key Key) (any, error) {
	return f(ctx, key)
}

// NewClientResolver resolves keys through a TMDB API client
func NewClientResolver(api tmdb.API) Resolver {
	return ResolverFunc(func(ctx context.Context, key Key) (any, error) {
		return api.Fetch(ctx, key.Kind, key.Params())
	})
}

// Option configures a Cache
type Option func(*Cache)

// WithStore adds a second-tier store
func WithStore(store Store) Option {
	return func(c *Cache) {
		c.store = store
	}
}

// WithClock overrides the time source used for UpdatedAt
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is the keyed request cache. It is safe for concurrent use.
type Cache struct {
	resolver Resolver
	store    Store
	logger   zerolog.Logger
	now      func() time.Time

	// resolutions run on the cache's own context so that one caller giving
	// up never fails a request other callers are sharing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	records map[Key]*record
	closed  bool
}

// New creates a cache that resolves misses through resolver
func New(resolver Resolver, logger zerolog.Logger, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		records:  make(map[Key]*record),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the entry for key, starting a fetch if none exists
func (c *Cache) Get(key Key) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recordLocked(key).entry
}

// Peek returns the entry for key without starting a fetch
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[key]
	if !ok {
		return Entry{}, false
	}
	return r.entry, true
}

// Wait returns the entry for key once it has settled. If ctx ends first the
// current pending snapshot is returned together with ctx.Err().
func (c *Cache) Wait(ctx context.Context, key Key) (Entry, error) {
	c.mu.Lock()
	r := c.recordLocked(key)
	c.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		c.mu.Lock()
		defer c.mu.Unlock()
		return r.entry, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return r.entry, nil
}

// Watch subscribes to key, starting a fetch if needed. The current snapshot
// is already on the channel when Watch returns.
func (c *Cache) Watch(key Key) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.recordLocked(key)
	sub := &Subscription{
		id:    uuid.NewString(),
		key:   key,
		ch:    make(chan Entry, 1),
		cache: c,
	}
	r.subs[sub.id] = sub
	sub.deliver(r.entry)

	return sub
}

// Invalidate forgets a settled entry so the next Get fetches again. A
// pending entry is left alone since its result is about to be fresh anyway;
// Invalidate reports whether an entry was dropped. Existing subscribers keep
// the snapshot they last received.
func (c *Cache) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[key]
	if !ok || !r.entry.Settled() {
		return false
	}
	delete(c.records, key)

	c.logger.Debug().Str("key", key.String()).Msg("Invalidated cache entry")
	return true
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.records)
}

// Close cancels outstanding fetches and waits for them to settle. The
// second-tier store, if any, is closed as well.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// recordLocked returns the record for key, creating and starting it if absent
func (c *Cache) recordLocked(key Key) *record {
	if r, ok := c.records[key]; ok {
		cacheHits.WithLabelValues(string(key.Kind)).Inc()
		return r
	}

	r := &record{
		entry: Entry{
			Key:       key,
			Status:    StatusPending,
			UpdatedAt: c.now(),
		},
		done: make(chan struct{}),
		subs: make(map[string]*Subscription),
	}
	c.records[key] = r

	if c.closed {
		c.settleLocked(r, nil, ErrClosed)
		return r
	}

	c.wg.Add(1)
	go c.resolve(r)

	return r
}

func (c *Cache) resolve(r *record) {
	defer c.wg.Done()

	value, err := c.load(c.ctx, r.entry.Key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked(r, value, err)
}

// load consults the store, then the resolver
func (c *Cache) load(ctx context.Context, key Key) (any, error) {
	kind := string(key.Kind)

	if c.store != nil {
		value, ok, err := c.store.Load(ctx, key)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Store lookup failed, fetching upstream")
		} else if ok {
			storeHits.WithLabelValues(kind).Inc()
			return value, nil
		}
	}

	resolverCalls.WithLabelValues(kind).Inc()
	value, err := c.resolver.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Save(ctx, key, value); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to write entry to store")
		}
	}

	return value, nil
}

// settleLocked moves a pending record to its final state and notifies
// subscribers. Deliveries never block. Every failure, including ErrClosed
// and cancellation, matches tmdb.ErrFetchFailed.
func (c *Cache) settleLocked(r *record, value any, err error) {
	if r.entry.Settled() {
		return
	}

	if err != nil && !errors.Is(err, tmdb.ErrFetchFailed) {
		err = fmt.Errorf("%w: %w", tmdb.ErrFetchFailed, err)
	}

	if err != nil {
		r.entry.Status = StatusError
		r.entry.Err = err
	} else {
		r.entry.Status = StatusSuccess
		r.entry.Value = value
	}
	r.entry.UpdatedAt = c.now()
	close(r.done)

	settledEntries.WithLabelValues(string(r.entry.Key.Kind), r.entry.Status.String()).Inc()

	c.logger.Debug().
		Str("key", r.entry.Key.String()).
		Str("status", r.entry.Status.String()).
		Int("subscribers", len(r.subs)).
		Msg("Cache entry settled")

	for _, sub := range r.subs {
		sub.deliver(r.entry)
	}
}

func (c *Cache) unsubscribe(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.records[s.key]; ok {
		delete(r.subs, s.id)
	}
}
