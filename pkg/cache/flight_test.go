package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	store := NewMemoryStore(Config{DefaultTTL: time.Hour, CleanupInterval: time.Hour})
	c := New(store)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_GetOrCompute_CachesResult(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fp := fingerprint.Fingerprint("fp-compute")

	var computes atomic.Int64
	fn := func(ctx context.Context) (corrections.Correction, error) {
		computes.Add(1)
		return testCorrection(1), nil
	}

	entry, err := c.GetOrCompute(ctx, fp, time.Hour, fn)
	require.NoError(t, err)
	assert.Equal(t, testCorrection(1), entry.Correction)

	// Second call is served from the store
	entry, err = c.GetOrCompute(ctx, fp, time.Hour, fn)
	require.NoError(t, err)
	assert.Equal(t, testCorrection(1), entry.Correction)

	assert.Equal(t, int64(1), computes.Load())
}

func TestCache_SingleFlight(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Fingerprint("fp-flight")

	var computes atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) (corrections.Correction, error) {
		computes.Add(1)
		close(started)
		<-release
		return testCorrection(42), nil
	}

	const callers = 16
	results := make([]Entry, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.GetOrCompute(context.Background(), fp, time.Hour, fn)
	}()

	// Wait until the first caller holds the in-flight marker, then pile on
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
				computes.Add(1)
				return corrections.Correction{}, nil
			})
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), computes.Load(), "exactly one compute for N concurrent callers")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, testCorrection(42), results[i].Correction)
	}
}

func TestCache_FailurePropagatesAndClearsMarker(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fp := fingerprint.Fingerprint("fp-fail")

	boom := errors.New(errors.ServerError, "provider down")

	_, err := c.GetOrCompute(ctx, fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
		return corrections.Correction{}, boom
	})
	require.Error(t, err)
	assert.Equal(t, errors.ServerError, errors.Code(err))

	// Failures are not cached
	_, found, _ := c.Get(ctx, fp)
	assert.False(t, found)

	// The marker is gone: a new compute runs and succeeds
	entry, err := c.GetOrCompute(ctx, fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
		return testCorrection(7), nil
	})
	require.NoError(t, err)
	assert.Equal(t, testCorrection(7), entry.Correction)
}

func TestCache_WaiterDetachesOnCancel(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Fingerprint("fp-detach")

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = c.GetOrCompute(context.Background(), fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
			close(started)
			<-release
			return testCorrection(9), nil
		})
	}()
	<-started

	// A waiter joins, then cancels: it detaches without killing the flight
	waiterCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrCompute(waiterCtx, fp, time.Hour, nil)
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.Code(err))

	close(release)

	// The in-flight call still completed and populated the cache
	assert.Eventually(t, func() bool {
		_, found, _ := c.Get(context.Background(), fp)
		return found
	}, time.Second, 5*time.Millisecond)
}

func TestCache_ComputeSurvivesOriginatorCancel(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Fingerprint("fp-origin-cancel")

	started := make(chan struct{})
	release := make(chan struct{})

	callerCtx, cancel := context.WithCancel(context.Background())
	go func() {
		_, _ = c.GetOrCompute(callerCtx, fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
			close(started)
			select {
			case <-ctx.Done():
				return corrections.Correction{}, ctx.Err()
			case <-release:
				return testCorrection(11), nil
			}
		})
	}()
	<-started

	// Cancel the caller that installed the marker; the compute context
	// is detached and must not observe the cancellation
	cancel()
	close(release)

	assert.Eventually(t, func() bool {
		_, found, _ := c.Get(context.Background(), fp)
		return found
	}, time.Second, 5*time.Millisecond)
}

func TestCache_InvalidateDiscardsInFlightResult(t *testing.T) {
	c := newTestCache(t)
	fp := fingerprint.Fingerprint("fp-invalidate")

	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		entry, err := c.GetOrCompute(context.Background(), fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
			close(started)
			<-release
			return testCorrection(13), nil
		})
		// The waiter still gets the result it was waiting on
		assert.NoError(t, err)
		assert.Equal(t, testCorrection(13), entry.Correction)
	}()
	<-started

	// A learned entry superseded the fingerprint mid-flight
	require.NoError(t, c.Invalidate(context.Background(), fp))

	close(release)
	<-done

	// But the superseded result never lands in the store
	time.Sleep(20 * time.Millisecond)
	_, found, _ := c.Get(context.Background(), fp)
	assert.False(t, found)
}

func TestCache_InvalidateRemovesEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fp := fingerprint.Fingerprint("fp-gone")

	_, err := c.GetOrCompute(ctx, fp, time.Hour, func(ctx context.Context) (corrections.Correction, error) {
		return testCorrection(1), nil
	})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, fp))

	_, found, _ := c.Get(ctx, fp)
	assert.False(t, found)
}
