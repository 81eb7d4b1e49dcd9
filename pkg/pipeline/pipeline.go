// Package pipeline wires the correction request path: fingerprint the
// unit, consult the learned store, then the cache, and only then the
// provider gateway. User feedback enters here and flows to the ledger
// and consensus engine.
package pipeline

import (
	"context"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/cache"
	"github.com/scriptorlabs/corrigo/pkg/consensus"
	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/learned"
	"github.com/scriptorlabs/corrigo/pkg/logging"
	"github.com/scriptorlabs/corrigo/pkg/provider"
)

// Source records where a correction came from.
type Source string

const (
	SourceLearned  Source = "learned"
	SourceCache    Source = "cache"
	SourceProvider Source = "provider"
)

// Result is the outcome of a correction request.
type Result struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Correction  corrections.Correction  `json:"correction"`
	Source      Source                  `json:"source"`
}

// Corrector is the entry point the rest of the system talks to.
type Corrector struct {
	index   *fingerprint.Index
	learned learned.Store
	cache   *cache.Cache
	gateway *provider.Gateway
	engine  *consensus.Engine
	ttl     time.Duration
}

// Deps are the components a Corrector coordinates. All are required
// except TTL, which falls back to an hour.
type Deps struct {
	Index   *fingerprint.Index
	Learned learned.Store
	Cache   *cache.Cache
	Gateway *provider.Gateway
	Engine  *consensus.Engine
	TTL     time.Duration
}

// New creates a Corrector.
func New(deps Deps) *Corrector {
	if deps.Index == nil {
		deps.Index = fingerprint.NewIndex("")
	}
	if deps.TTL == 0 {
		deps.TTL = time.Hour
	}
	return &Corrector{
		index:   deps.Index,
		learned: deps.Learned,
		cache:   deps.Cache,
		gateway: deps.Gateway,
		engine:  deps.Engine,
		ttl:     deps.TTL,
	}
}

// Correct resolves a correction for the unit. The learned store always
// wins when it holds an active entry; otherwise the cache is consulted
// and, on a miss, the provider gateway is invoked exactly once per
// fingerprint no matter how many callers race here.
func (c *Corrector) Correct(ctx context.Context, unit corrections.Unit) (Result, error) {
	fp := c.index.Fingerprint(unit)
	ctx = logging.WithFingerprint(ctx, fp.String())
	logger := logging.GetLogger()

	if entry, found, err := c.learned.Lookup(ctx, fp); err == nil && found && entry.Active() {
		logger.Debug(ctx, "serving learned correction")
		return Result{
			Fingerprint: fp,
			Correction: corrections.Correction{
				Original:   entry.Original,
				Corrected:  entry.Corrected,
				Category:   unit.Category,
				Confidence: entry.Ratio,
			},
			Source: SourceLearned,
		}, nil
	}

	if entry, found, err := c.cache.Get(ctx, fp); err == nil && found {
		return Result{Fingerprint: fp, Correction: entry.Correction, Source: SourceCache}, nil
	}

	entry, err := c.cache.GetOrCompute(ctx, fp, c.ttl, func(ctx context.Context) (corrections.Correction, error) {
		return c.gateway.Correct(ctx, unit)
	})
	if err != nil {
		return Result{Fingerprint: fp}, err
	}

	return Result{Fingerprint: fp, Correction: entry.Correction, Source: SourceProvider}, nil
}

// Fingerprint exposes the index so presentation layers can key their
// feedback against the same scheme as the request path.
func (c *Corrector) Fingerprint(unit corrections.Unit) fingerprint.Fingerprint {
	return c.index.Fingerprint(unit)
}

// Feedback records a user's verdict on a proposed correction and
// returns the resulting consensus stats. A PersistenceFailure here
// means the verdict was not stored; the caller should retry.
func (c *Corrector) Feedback(ctx context.Context, fp fingerprint.Fingerprint, judged corrections.Correction, verdict corrections.Verdict, documentID string) (corrections.ConsensusStats, error) {
	ctx = logging.WithFingerprint(ctx, fp.String())
	return c.engine.RecordFeedback(ctx, fp, judged, verdict, documentID)
}

// Learned lists the learned store's entries, read-only, for reporting.
func (c *Corrector) Learned(ctx context.Context) ([]corrections.LearnedEntry, error) {
	return c.learned.All(ctx)
}

// CacheStats exposes request-path cache counters.
func (c *Corrector) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// GatewayStats exposes provider traffic counters.
func (c *Corrector) GatewayStats() provider.GatewayStats {
	return c.gateway.Stats()
}

// Close shuts down the engine and cache.
func (c *Corrector) Close() error {
	if err := c.engine.Close(); err != nil {
		return err
	}
	return c.cache.Close()
}
