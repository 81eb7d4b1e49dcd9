// Package learned holds the durable mapping of corrections promoted by
// consensus. The request path consults it before the cache or the
// provider; only the consensus engine writes to it.
package learned

import (
	"context"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// Store is the learned corrections store.
type Store interface {
	// Lookup returns the entry for a fingerprint, whatever its state.
	Lookup(ctx context.Context, fp fingerprint.Fingerprint) (corrections.LearnedEntry, bool, error)

	// Upsert creates or replaces an entry.
	Upsert(ctx context.Context, entry corrections.LearnedEntry) error

	// Retract marks an entry retracted without deleting its history.
	Retract(ctx context.Context, fp fingerprint.Fingerprint) error

	// All returns every entry, for reporting.
	All(ctx context.Context) ([]corrections.LearnedEntry, error)

	// Close releases any resources held by the store.
	Close() error
}
