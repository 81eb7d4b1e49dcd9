// Package provider wraps the external correction provider with the
// reliability machinery the request path depends on: per-call
// timeouts, bounded retry with jittered backoff, and a circuit
// breaker that fails fast while the provider is degraded.
package provider

import (
	"context"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
)

// Provider is the external correction collaborator. Implementations
// return a candidate correction or a typed failure from pkg/errors.
type Provider interface {
	Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, unit corrections.Unit) (corrections.Correction, error)

func (f ProviderFunc) Correct(ctx context.Context, unit corrections.Unit) (corrections.Correction, error) {
	return f(ctx, unit)
}
