package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// MemoryLedger keeps feedback in memory. Suitable for tests and
// ephemeral runs; nothing survives a restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[fingerprint.Fingerprint][]corrections.FeedbackRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[fingerprint.Fingerprint][]corrections.FeedbackRecord),
	}
}

func (l *MemoryLedger) Record(ctx context.Context, fp fingerprint.Fingerprint, verdict corrections.Verdict, documentID string) (corrections.FeedbackRecord, error) {
	if !verdict.Valid() {
		return corrections.FeedbackRecord{}, errors.WithFields(
			errors.New(errors.InvalidInput, "unrecognized verdict"),
			errors.Fields{"verdict": string(verdict)})
	}

	rec := corrections.FeedbackRecord{
		ID:          uuid.NewString(),
		Fingerprint: fp.String(),
		Verdict:     verdict,
		DocumentID:  documentID,
		CreatedAt:   time.Now(),
	}

	l.mu.Lock()
	l.records[fp] = append(l.records[fp], rec)
	l.mu.Unlock()

	return rec, nil
}

func (l *MemoryLedger) Scan(ctx context.Context, fp fingerprint.Fingerprint) ([]corrections.FeedbackRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]corrections.FeedbackRecord, len(l.records[fp]))
	copy(records, l.records[fp])
	return records, nil
}

func (l *MemoryLedger) Fingerprints(ctx context.Context) ([]fingerprint.Fingerprint, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fps := make([]fingerprint.Fingerprint, 0, len(l.records))
	for fp := range l.records {
		fps = append(fps, fp)
	}
	return fps, nil
}

func (l *MemoryLedger) Close() error {
	return nil
}
