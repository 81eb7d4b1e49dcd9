package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/logging"
)

// ComputeFunc produces a correction for a fingerprint, normally by
// calling the provider gateway.
type ComputeFunc func(ctx context.Context) (corrections.Correction, error)

// flightCall is the in-flight marker for one fingerprint. The first
// caller creates it; every concurrent caller for the same fingerprint
// waits on done instead of issuing a duplicate provider call.
type flightCall struct {
	done        chan struct{}
	entry       Entry
	err         error
	invalidated atomic.Bool
}

// Cache combines a Store with single-flight de-duplication of
// concurrent computes for the same fingerprint.
type Cache struct {
	store Store

	mu       sync.Mutex
	inflight map[fingerprint.Fingerprint]*flightCall
}

// New wraps a store with single-flight semantics.
func New(store Store) *Cache {
	return &Cache{
		store:    store,
		inflight: make(map[fingerprint.Fingerprint]*flightCall),
	}
}

// Get retrieves a live entry without ever blocking on a compute.
func (c *Cache) Get(ctx context.Context, fp fingerprint.Fingerprint) (Entry, bool, error) {
	return c.store.Get(ctx, fp)
}

// GetOrCompute returns a live cached entry, joins an in-flight compute
// for the same fingerprint, or runs fn and caches its result.
//
// The compute runs detached from the caller's context: a caller that is
// canceled while waiting detaches without aborting the call, which
// still completes and populates the cache for everyone else. Failures
// are propagated to all waiters and never cached.
func (c *Cache) GetOrCompute(ctx context.Context, fp fingerprint.Fingerprint, ttl time.Duration, fn ComputeFunc) (Entry, error) {
	if entry, found, err := c.store.Get(ctx, fp); err == nil && found {
		return entry, nil
	}

	c.mu.Lock()
	if call, exists := c.inflight[fp]; exists {
		c.mu.Unlock()
		return c.wait(ctx, call)
	}

	call := &flightCall{done: make(chan struct{})}
	c.inflight[fp] = call
	c.mu.Unlock()

	go c.compute(context.WithoutCancel(ctx), fp, ttl, call, fn)

	return c.wait(ctx, call)
}

// Invalidate removes any cached entry and detaches an in-flight marker
// so its eventual result is discarded. Used when a learned-store write
// supersedes a cached guess.
func (c *Cache) Invalidate(ctx context.Context, fp fingerprint.Fingerprint) error {
	c.mu.Lock()
	if call, exists := c.inflight[fp]; exists {
		call.invalidated.Store(true)
		delete(c.inflight, fp)
	}
	c.mu.Unlock()

	return c.store.Delete(ctx, fp)
}

// Stats exposes the underlying store's statistics.
func (c *Cache) Stats() Stats {
	return c.store.Stats()
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) compute(ctx context.Context, fp fingerprint.Fingerprint, ttl time.Duration, call *flightCall, fn ComputeFunc) {
	correction, err := fn(ctx)

	if err != nil {
		call.err = err
	} else if call.invalidated.Load() {
		// A learned entry superseded this compute while it ran; hand
		// the result to current waiters but keep it out of the store.
		call.entry = Entry{Fingerprint: fp, Correction: correction, CreatedAt: time.Now()}
	} else {
		entry, putErr := c.store.Put(ctx, fp, correction, ttl)
		if putErr != nil {
			call.err = errors.Wrap(putErr, errors.PersistenceFailure, "failed to cache correction")
		} else {
			call.entry = entry
		}
	}

	// Remove the marker before waking waiters so no fingerprint can
	// deadlock behind a completed call.
	c.mu.Lock()
	if c.inflight[fp] == call {
		delete(c.inflight, fp)
	}
	c.mu.Unlock()

	close(call.done)

	if call.err != nil {
		logging.GetLogger().Debug(ctx, "compute for %s failed: %v", fp, call.err)
	}
}

// wait blocks until the in-flight call resolves or the caller's
// context is done. Detaching never affects the call itself.
func (c *Cache) wait(ctx context.Context, call *flightCall) (Entry, error) {
	select {
	case <-call.done:
		return call.entry, call.err
	case <-ctx.Done():
		return Entry{}, errors.Wrap(ctx.Err(), errors.Canceled, "canceled while waiting for in-flight correction")
	}
}
