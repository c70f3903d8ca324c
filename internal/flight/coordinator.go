// Package flight deduplicates concurrent generations and caches their
// results.
//
// A Coordinator guarantees at most one running generation per key. Callers
// that arrive while a generation is running wait on its shared result instead
// of starting another one. Successful results are cached for a fixed TTL;
// failures are delivered to every waiter and never cached.
package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrOwnerPanicked is delivered to waiters when the generation function
// panicked in the owning caller.
var ErrOwnerPanicked = errors.New("flight: generation panicked")

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// call is the shared future of one running generation. value and err are
// written once by the owner before done is closed.
type call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

type options struct {
	now func() time.Time
}

// Option configures a Coordinator.
type Option func(*options)

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Coordinator is a single-flight TTL cache for values of type T.
// The cache map and the in-flight map are guarded by one mutex; the
// generation function itself always runs outside it.
type Coordinator[T any] struct {
	mu    sync.Mutex
	cache map[string]entry[T]
	calls map[string]*call[T]

	ttl time.Duration
	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// New returns a Coordinator whose entries stay fresh for ttl.
func New[T any](ttl time.Duration, opts ...Option) *Coordinator[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator[T]{
		cache: make(map[string]entry[T]),
		calls: make(map[string]*call[T]),
		ttl:   ttl,
		now:   o.now,
	}
}

// Fetch returns the value for key. A fresh cached value is returned without
// calling fn. If a generation for key is already running, Fetch waits for its
// outcome, or for ctx to be done. Otherwise the caller becomes the owner and
// runs fn(ctx); a successful result is cached before waiters are released.
func (c *Coordinator[T]) Fetch(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.cache[key]; ok {
		if c.fresh(e) {
			c.mu.Unlock()
			c.hits.Add(1)
			return e.value, nil
		}
		delete(c.cache, key)
	}

	if cl, ok := c.calls[key]; ok {
		c.mu.Unlock()
		c.shared.Add(1)
		select {
		case <-cl.done:
			return cl.value, cl.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	cl := &call[T]{done: make(chan struct{})}
	c.calls[key] = cl
	c.mu.Unlock()
	c.misses.Add(1)

	c.run(ctx, key, cl, fn)
	return cl.value, cl.err
}

func (c *Coordinator[T]) run(ctx context.Context, key string, cl *call[T], fn func(context.Context) (T, error)) {
	returned := false
	defer func() {
		if !returned {
			var zero T
			cl.value, cl.err = zero, ErrOwnerPanicked
		}
		c.mu.Lock()
		if cl.err == nil {
			c.cache[key] = entry[T]{value: cl.value, storedAt: c.now()}
		}
		delete(c.calls, key)
		c.mu.Unlock()
		close(cl.done)
	}()

	cl.value, cl.err = fn(ctx)
	returned = true
}

// fresh must be called with c.mu held.
func (c *Coordinator[T]) fresh(e entry[T]) bool {
	return c.now().Sub(e.storedAt) <= c.ttl
}

// Peek returns the cached value for key when it is still fresh. It never
// starts a generation and never waits.
func (c *Coordinator[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[key]
	if !ok || !c.fresh(e) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Invalidate drops the cached value for key. A running generation for key is
// not affected and will still store its result.
func (c *Coordinator[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

// EvictExpired removes every stale entry and returns how many were removed.
func (c *Coordinator[T]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.cache {
		if !c.fresh(e) {
			delete(c.cache, k)
			n++
		}
	}
	return n
}

// Len returns the number of fresh cached entries.
func (c *Coordinator[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.cache {
		if c.fresh(e) {
			n++
		}
	}
	return n
}

// Stats is a point-in-time view of a Coordinator.
type Stats struct {
	Entries     int   `json:"entries"`
	InFlight    int   `json:"inFlight"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	SharedWaits int64 `json:"sharedWaits"`
}

// Stats returns the current counters. Entries includes stale entries not
// yet evicted.
func (c *Coordinator[T]) Stats() Stats {
	c.mu.Lock()
	entries, inFlight := len(c.cache), len(c.calls)
	c.mu.Unlock()
	return Stats{
		Entries:     entries,
		InFlight:    inFlight,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		SharedWaits: c.shared.Load(),
	}
}
