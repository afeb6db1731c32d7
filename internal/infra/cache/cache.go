// Package cache provides the in-memory TTL cache used for report and
// catalog results. Freshness is judged from the time an entry was stored,
// so an entry is served while now - storedAt <= ttl.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL. Concurrent Sets of
// the same key are last-write-wins.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// Option configures an InMemory cache.
type Option func(*options)

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often expired entries are purged.
// Zero disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	o := options{now: time.Now, sweepInterval: ttl}
	for _, opt := range opts {
		opt(&o)
	}

	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   o.now,
		stop:  make(chan struct{}),
	}
	if o.sweepInterval > 0 {
		go c.sweep(o.sweepInterval)
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or stale.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.fresh(e, c.now()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value stamped with the current time.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, storedAt: c.now()}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of stored entries, stale ones included.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweep. It is safe to call more than once.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *InMemory[T]) fresh(e entry[T], now time.Time) bool {
	return now.Sub(e.storedAt) <= c.ttl
}

// sweep periodically removes stale entries.
func (c *InMemory[T]) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, v := range c.items {
				if !c.fresh(v, now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
