// Package corrigo is a reliability and learning layer between a
// document-correction pipeline and its external correction provider.
//
// Corrigo keeps a fingerprinted cache of provider responses, guards the
// provider behind a gateway with timeouts, retries and a circuit
// breaker, and folds accumulated user feedback into learned
// corrections that stop costing provider calls once consensus is
// stable.
//
// Key Components:
//
//   - Fingerprint: deterministic identity for a text unit. Equivalent
//     spellings (whitespace runs, letter case, Unicode normalization
//     forms) collapse onto one fingerprint so feedback and cache
//     entries accumulate instead of fragmenting.
//
//   - Cache: an expiring store with single-flight de-duplication, so a
//     burst of requests for one fingerprint costs a single provider
//     call.
//
//   - Provider: the gateway wrapping the external correction service
//     with per-call timeouts, jittered exponential backoff and a
//     circuit breaker that fails fast while the provider is down.
//
//   - Ledger: the append-only record of user verdicts on proposed
//     corrections, the source of truth for all consensus computation.
//
//   - Consensus: promotion and retraction of learned corrections with
//     hysteresis, so split feedback near a threshold cannot flap an
//     entry in and out of service.
//
//   - Learned: the durable store of promoted corrections, consulted
//     before the cache and the provider on every request.
//
//   - Pipeline: the Corrector tying the layers together; most callers
//     only need this package.
//
// Example Usage:
//
//	store := cache.New(cache.NewMemoryStore(cache.Config{DefaultTTL: time.Hour}))
//	backend, err := provider.NewAnthropicProvider(provider.AnthropicConfig{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	corrector := pipeline.New(pipeline.Deps{
//		Learned: learnedStore,
//		Cache:   store,
//		Gateway: provider.NewGateway(backend, provider.GatewayConfig{}),
//		Engine:  engine,
//	})
//
//	result, err := corrector.Correct(ctx, corrections.Unit{
//		Text:     "ando al mare",
//		Category: "accents",
//	})
//
// For configuration loading, the config package reads YAML with
// CORRIGO_* environment overrides. The cmd/corrigo CLI exposes the
// pipeline for line-by-line use.
package corrigo
