package provider

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	circuitClosed   uint32 = 0
	circuitOpen     uint32 = 1
	circuitHalfOpen uint32 = 2
)

// CircuitBreaker stops calling a degraded provider until it shows
// signs of recovery. Failures are counted within a rolling window;
// once the count crosses the threshold the breaker opens and all
// calls fail fast for the cooldown period, after which exactly one
// probe call is allowed through.
type CircuitBreaker struct {
	failures    atomic.Int32
	threshold   int32
	window      time.Duration
	cooldown    time.Duration
	state       atomic.Uint32 // 0=closed, 1=open, 2=half-open
	windowStart atomic.Int64  // Unix nano timestamp of the first failure in the window
	lastFailure atomic.Int64  // Unix nano timestamp
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(threshold int32, window, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
	}
}

// Allow returns true if a provider call is allowed. While the breaker
// is open it returns true for exactly one goroutine once the cooldown
// has elapsed (the half-open probe) and false for everyone else.
func (cb *CircuitBreaker) Allow() bool {
	for {
		state := cb.state.Load()
		switch state {
		case circuitOpen:
			lastFail := time.Unix(0, cb.lastFailure.Load())
			if time.Since(lastFail) > cb.cooldown {
				// CAS: only one goroutine transitions to half-open
				if cb.state.CompareAndSwap(circuitOpen, circuitHalfOpen) {
					return true // This goroutine gets the probe request
				}
				continue // Another goroutine won, retry
			}
			return false
		case circuitHalfOpen:
			return false // Only one request allowed in half-open
		default: // circuitClosed
			return true
		}
	}
}

// RecordSuccess records a successful provider call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(circuitClosed)
}

// RecordFailure records a failed provider call.
func (cb *CircuitBreaker) RecordFailure() {
	now := time.Now().UnixNano()

	// Restart the rolling window if the previous one has elapsed
	start := cb.windowStart.Load()
	if cb.window > 0 && (start == 0 || now-start > int64(cb.window)) {
		if cb.windowStart.CompareAndSwap(start, now) {
			cb.failures.Store(0)
		}
	}

	// Atomic increment + CAS loop to prevent TOCTOU race
	for {
		currentFailures := cb.failures.Load()

		// Prevent overflow
		if currentFailures == math.MaxInt32 {
			return
		}

		newFailures := currentFailures + 1

		if !cb.failures.CompareAndSwap(currentFailures, newFailures) {
			continue // Another goroutine incremented, retry
		}

		// Check threshold with the value we successfully stored. A
		// half-open probe failure reopens immediately regardless of count.
		if newFailures >= cb.threshold || cb.state.Load() == circuitHalfOpen {
			if cb.state.CompareAndSwap(circuitClosed, circuitOpen) ||
				cb.state.CompareAndSwap(circuitHalfOpen, circuitOpen) {
				cb.lastFailure.Store(time.Now().UnixNano())
			}
		}
		return
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() string {
	state := cb.state.Load()
	switch state {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
