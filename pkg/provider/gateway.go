package provider

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/logging"
)

// GatewayConfig holds the reliability settings for provider calls.
type GatewayConfig struct {
	// Per-call timeout applied to every provider attempt
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Maximum attempts per Correct call (1 = no retries)
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Backoff base delay, doubled per attempt up to BackoffCap
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`
	BackoffCap  time.Duration `json:"backoff_cap" yaml:"backoff_cap"`

	// Circuit breaker settings
	FailureThreshold int32         `json:"failure_threshold" yaml:"failure_threshold"`
	FailureWindow    time.Duration `json:"failure_window" yaml:"failure_window"`
	Cooldown         time.Duration `json:"cooldown" yaml:"cooldown"`
}

func (c *GatewayConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 200 * time.Millisecond
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = 5 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.FailureWindow == 0 {
		c.FailureWindow = time.Minute
	}
	if c.Cooldown == 0 {
		c.Cooldown = 30 * time.Second
	}
}

// GatewayStats counts provider traffic for instrumentation.
type GatewayStats struct {
	Calls    int64  `json:"calls"`
	Retries  int64  `json:"retries"`
	Failures int64  `json:"failures"`
	Rejected int64  `json:"rejected"` // failed fast with the circuit open
	Breaker  string `json:"breaker"`
}

// Gateway wraps a Provider with timeout, retry with jittered
// exponential backoff, and a circuit breaker. It never writes to the
// cache; callers do, via the cache's GetOrCompute.
type Gateway struct {
	provider Provider
	config   GatewayConfig
	breaker  *CircuitBreaker

	calls    atomic.Int64
	retries  atomic.Int64
	failures atomic.Int64
	rejected atomic.Int64
}

// NewGateway creates a gateway around the given provider.
func NewGateway(p Provider, config GatewayConfig) *Gateway {
	config.applyDefaults()
	return &Gateway{
		provider: p,
		config:   config,
		breaker:  NewCircuitBreaker(config.FailureThreshold, config.FailureWindow, config.Cooldown),
	}
}

// Correct calls the provider, retrying transient failures up to the
// attempt limit. Non-transient failures propagate immediately. While
// the circuit is open, calls fail fast with ProviderUnavailable
// without contacting the provider.
func (g *Gateway) Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	logger := logging.GetLogger()

	if !g.breaker.Allow() {
		g.rejected.Add(1)
		return corrections.Correction{}, errors.WithFields(
			errors.New(errors.ProviderUnavailable, "correction provider circuit open"),
			errors.Fields{"cooldown": g.config.Cooldown})
	}

	var lastErr error
	delay := g.config.BackoffBase

	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		if err := errors.CheckContext(ctx, "provider call"); err != nil {
			return corrections.Correction{}, err
		}

		correction, err := g.attempt(ctx, unit)
		if err == nil {
			g.breaker.RecordSuccess()
			return correction, nil
		}

		lastErr = err

		if !errors.IsTransient(err) {
			// Malformed input, auth failures and cancellation are not
			// the provider's health problem; fail without retry.
			return corrections.Correction{}, err
		}

		g.breaker.RecordFailure()
		g.failures.Add(1)
		logger.Warn(ctx, "provider attempt %d/%d failed: %v", attempt, g.config.MaxAttempts, err)

		// Don't sleep after the last attempt
		if attempt == g.config.MaxAttempts {
			break
		}

		g.retries.Add(1)
		select {
		case <-ctx.Done():
			return corrections.Correction{}, errors.Wrap(ctx.Err(), errors.Canceled, "provider call canceled")
		case <-time.After(withJitter(delay)):
		}

		// Double the delay per attempt, capped
		delay *= 2
		if delay > g.config.BackoffCap {
			delay = g.config.BackoffCap
		}
	}

	return corrections.Correction{}, errors.WithFields(
		errors.Wrap(lastErr, errors.Code(lastErr), "provider retries exhausted"),
		errors.Fields{"attempts": g.config.MaxAttempts})
}

// attempt runs a single provider call under the per-call timeout.
func (g *Gateway) attempt(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	g.calls.Add(1)

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	correction, err := g.provider.Correct(callCtx, unit)
	if err != nil {
		// A deadline hit on our own timer is a provider timeout even if
		// the implementation surfaced a bare context error.
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return corrections.Correction{}, errors.Wrap(err, errors.Timeout, "provider call timed out")
		}
		return corrections.Correction{}, err
	}

	return correction, nil
}

// Stats returns a snapshot of gateway traffic counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		Calls:    g.calls.Load(),
		Retries:  g.retries.Load(),
		Failures: g.failures.Load(),
		Rejected: g.rejected.Load(),
		Breaker:  g.breaker.State(),
	}
}

// withJitter spreads a delay over [delay/2, delay) so concurrent
// callers don't retry in lockstep.
func withJitter(delay time.Duration) time.Duration {
	if delay <= 1 {
		return delay
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)))
}
