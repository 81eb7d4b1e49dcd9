// Package consensus folds the feedback ledger into per-fingerprint
// statistics and decides promotion into, and retraction from, the
// learned corrections store.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/scriptorlabs/corrigo/pkg/cache"
	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/learned"
	"github.com/scriptorlabs/corrigo/pkg/ledger"
	"github.com/scriptorlabs/corrigo/pkg/logging"
)

// Config holds the promotion and demotion rules.
type Config struct {
	// Minimum sample size before promotion is considered
	MinSamples int `json:"min_samples" yaml:"min_samples"`

	// Accepted-ratio at or above which a correction is promoted
	PromoteThreshold float64 `json:"promote_threshold" yaml:"promote_threshold"`

	// Accepted-ratio strictly below which a learned correction is
	// retracted. Kept lower than PromoteThreshold so a single
	// dissenting vote cannot flap an entry in and out of existence.
	DemoteThreshold float64 `json:"demote_threshold" yaml:"demote_threshold"`

	// Eager recomputes consensus after every append. The periodic
	// sweep still runs when SweepInterval is set; both are safe.
	Eager bool `json:"eager" yaml:"eager"`

	// SweepInterval between batch recomputes (0 disables the sweep)
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// SweepWorkers bounds the sweep's recompute parallelism
	SweepWorkers int `json:"sweep_workers" yaml:"sweep_workers"`
}

func (c *Config) applyDefaults() {
	if c.MinSamples == 0 {
		c.MinSamples = 3
	}
	if c.PromoteThreshold == 0 {
		c.PromoteThreshold = 0.75
	}
	if c.DemoteThreshold == 0 {
		c.DemoteThreshold = 0.5
	}
	if c.SweepWorkers == 0 {
		c.SweepWorkers = 4
	}
}

// Engine aggregates ledger records and maintains the learned store.
// It is the only component that writes learned entries.
type Engine struct {
	ledger ledger.Ledger
	store  learned.Store
	cache  *cache.Cache
	config Config

	// Serializes recompute so each applied result reflects a consistent
	// prefix of the ledger. Write volume is low; coarse is fine here.
	mu sync.Mutex

	closeChan chan struct{}
	closeOnce sync.Once
	sweepWG   sync.WaitGroup
}

// NewEngine creates a consensus engine. The cache may be nil when no
// request-path cache needs invalidating (e.g., offline recomputes).
func NewEngine(l ledger.Ledger, store learned.Store, c *cache.Cache, config Config) *Engine {
	config.applyDefaults()
	e := &Engine{
		ledger:    l,
		store:     store,
		cache:     c,
		config:    config,
		closeChan: make(chan struct{}),
	}

	if config.SweepInterval > 0 {
		e.sweepWG.Add(1)
		go e.sweepRoutine()
	}

	return e
}

// RecordFeedback appends a verdict to the ledger and, when eager
// recompute is on, immediately folds it into the learned store. The
// correction is the proposal the user judged; it seeds the learned
// entry's text on first feedback.
func (e *Engine) RecordFeedback(ctx context.Context, fp fingerprint.Fingerprint, c corrections.Correction, verdict corrections.Verdict, documentID string) (corrections.ConsensusStats, error) {
	if _, err := e.ledger.Record(ctx, fp, verdict, documentID); err != nil {
		// Never swallow a write failure; the caller can retry the append
		return corrections.ConsensusStats{}, err
	}

	e.seed(ctx, fp, c)

	if !e.config.Eager {
		return e.statsOnly(ctx, fp)
	}
	return e.Recompute(ctx, fp)
}

// seed makes sure an entry carrying the judged correction's text
// exists, so later promotion (eager or sweep) has something to promote.
func (e *Engine) seed(ctx context.Context, fp fingerprint.Fingerprint, c corrections.Correction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, found, err := e.store.Lookup(ctx, fp); err != nil || found {
		return
	}

	entry := corrections.LearnedEntry{
		Fingerprint: fp.String(),
		Original:    c.Original,
		Corrected:   c.Corrected,
		State:       corrections.StateContested,
		UpdatedAt:   time.Now(),
	}
	if err := e.store.Upsert(ctx, entry); err != nil {
		logging.GetLogger().Warn(ctx, "failed to seed learned entry for %s: %v", fp, err)
	}
}

// Recompute folds all ledger records for a fingerprint and applies the
// promotion and demotion rules to the learned store.
func (e *Engine) Recompute(ctx context.Context, fp fingerprint.Fingerprint) (corrections.ConsensusStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, err := e.fold(ctx, fp)
	if err != nil {
		return corrections.ConsensusStats{}, err
	}

	if err := e.apply(ctx, fp, stats); err != nil {
		return corrections.ConsensusStats{}, err
	}

	return stats, nil
}

// Stats folds the ledger without touching the learned store, for
// read-only consumers such as report rendering.
func (e *Engine) Stats(ctx context.Context, fp fingerprint.Fingerprint) (corrections.ConsensusStats, error) {
	return e.statsOnly(ctx, fp)
}

func (e *Engine) statsOnly(ctx context.Context, fp fingerprint.Fingerprint) (corrections.ConsensusStats, error) {
	return e.fold(ctx, fp)
}

func (e *Engine) fold(ctx context.Context, fp fingerprint.Fingerprint) (corrections.ConsensusStats, error) {
	records, err := e.ledger.Scan(ctx, fp)
	if err != nil {
		return corrections.ConsensusStats{}, err
	}

	stats := corrections.ConsensusStats{Fingerprint: fp.String(), LastUpdated: time.Now()}
	for _, rec := range records {
		switch rec.Verdict {
		case corrections.VerdictAccepted:
			stats.Accepted++
		case corrections.VerdictRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// apply moves the learned entry through its lifecycle. Promotion
// requires minSamples and ratio >= promoteThreshold; an already
// learned entry only retracts once the ratio falls strictly below
// demoteThreshold. Boundary values resolve toward the prior state.
func (e *Engine) apply(ctx context.Context, fp fingerprint.Fingerprint, stats corrections.ConsensusStats) error {
	logger := logging.GetLogger()

	entry, found, err := e.store.Lookup(ctx, fp)
	if !found || err != nil {
		// Nothing to promote: no judged correction text is known yet
		return err
	}

	prior := entry.State
	next := prior

	switch prior {
	case corrections.StateLearned:
		if stats.Ratio() < e.config.DemoteThreshold {
			next = corrections.StateRetracted
		}
	default: // contested or retracted
		if stats.Total() >= e.config.MinSamples && stats.Ratio() >= e.config.PromoteThreshold {
			next = corrections.StateLearned
		}
	}

	entry.Ratio = stats.Ratio()
	entry.SampleSize = stats.Total()
	entry.State = next
	entry.UpdatedAt = time.Now()

	if err := e.store.Upsert(ctx, entry); err != nil {
		return err
	}

	if next != prior {
		logger.Info(ctx, "consensus moved %s from %s to %s (ratio=%.2f, samples=%d)",
			fp, prior, next, entry.Ratio, entry.SampleSize)
	}

	// A learned entry supersedes any cached guess for the fingerprint.
	if next == corrections.StateLearned && e.cache != nil {
		if err := e.cache.Invalidate(ctx, fp); err != nil {
			logger.Warn(ctx, "failed to invalidate cache for %s: %v", fp, err)
		}
	}

	return nil
}

// Sweep recomputes consensus for every fingerprint with feedback,
// bounded by SweepWorkers.
func (e *Engine) Sweep(ctx context.Context) error {
	fps, err := e.ledger.Fingerprints(ctx)
	if err != nil {
		return err
	}

	p := pool.New().WithMaxGoroutines(e.config.SweepWorkers).WithErrors()
	for _, fp := range fps {
		fp := fp
		p.Go(func() error {
			_, err := e.Recompute(ctx, fp)
			return err
		})
	}
	return p.Wait()
}

func (e *Engine) sweepRoutine() {
	defer e.sweepWG.Done()

	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.closeChan:
			return
		case <-ticker.C:
			if err := e.Sweep(context.Background()); err != nil {
				logging.GetLogger().Warn(context.Background(), "consensus sweep failed: %v", err)
			}
		}
	}
}

// Close stops the periodic sweep, if any.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.closeChan)
	})
	e.sweepWG.Wait()
	return nil
}
