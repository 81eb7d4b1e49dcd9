// Package ledger records per-correction human judgments. The ledger is
// append-only and is the source of truth for all consensus
// computation: records are never mutated or individually deleted.
package ledger

import (
	"context"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// Ledger is the append-only feedback store.
type Ledger interface {
	// Record appends a verdict for a fingerprint. Duplicate identical
	// records are harmless; counts simply reflect repeated
	// confirmation. Storage faults surface as PersistenceFailure and
	// the record is never silently dropped.
	Record(ctx context.Context, fp fingerprint.Fingerprint, verdict corrections.Verdict, documentID string) (corrections.FeedbackRecord, error)

	// Scan returns all records for a fingerprint in append order.
	Scan(ctx context.Context, fp fingerprint.Fingerprint) ([]corrections.FeedbackRecord, error)

	// Fingerprints returns every fingerprint with at least one record.
	Fingerprints(ctx context.Context) ([]fingerprint.Fingerprint, error)

	// Close releases any resources held by the ledger.
	Close() error
}
