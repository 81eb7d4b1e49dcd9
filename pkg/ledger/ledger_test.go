package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	db, err := OpenDB(SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db"), EnableWAL: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := NewSQLiteLedger(db)
	require.NoError(t, err)
	return l
}

func testLedgers(t *testing.T) map[string]Ledger {
	return map[string]Ledger{
		"sqlite": openTestLedger(t),
		"memory": NewMemoryLedger(),
	}
}

func TestLedger_RecordAndScan(t *testing.T) {
	for name, l := range testLedgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fp := fingerprint.Fingerprint("fp-scan")

			rec, err := l.Record(ctx, fp, corrections.VerdictAccepted, "doc-1")
			require.NoError(t, err)
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, fp.String(), rec.Fingerprint)
			assert.False(t, rec.CreatedAt.IsZero())

			_, err = l.Record(ctx, fp, corrections.VerdictRejected, "doc-2")
			require.NoError(t, err)

			records, err := l.Scan(ctx, fp)
			require.NoError(t, err)
			require.Len(t, records, 2)

			// Append order is preserved
			assert.Equal(t, corrections.VerdictAccepted, records[0].Verdict)
			assert.Equal(t, corrections.VerdictRejected, records[1].Verdict)
		})
	}
}

func TestLedger_ScanUnknownFingerprint(t *testing.T) {
	for name, l := range testLedgers(t) {
		t.Run(name, func(t *testing.T) {
			records, err := l.Scan(context.Background(), "fp-nobody")
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestLedger_RejectsUnknownVerdict(t *testing.T) {
	for name, l := range testLedgers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := l.Record(context.Background(), "fp-bad", corrections.Verdict("maybe"), "doc")
			require.Error(t, err)
			assert.Equal(t, errors.InvalidInput, errors.Code(err))
		})
	}
}

func TestLedger_DuplicateRecordsAccumulate(t *testing.T) {
	for name, l := range testLedgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fp := fingerprint.Fingerprint("fp-dup")

			// Repeated confirmation is accepted behavior, not an error
			for i := 0; i < 3; i++ {
				_, err := l.Record(ctx, fp, corrections.VerdictAccepted, "doc-1")
				require.NoError(t, err)
			}

			records, err := l.Scan(ctx, fp)
			require.NoError(t, err)
			assert.Len(t, records, 3)
		})
	}
}

func TestLedger_Fingerprints(t *testing.T) {
	for name, l := range testLedgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 4; i++ {
				fp := fingerprint.Fingerprint(fmt.Sprintf("fp-%d", i%2))
				_, err := l.Record(ctx, fp, corrections.VerdictAccepted, "doc")
				require.NoError(t, err)
			}

			fps, err := l.Fingerprints(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []fingerprint.Fingerprint{"fp-0", "fp-1"}, fps)
		})
	}
}

func TestSQLiteLedger_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	fp := fingerprint.Fingerprint("fp-durable")

	db, err := OpenDB(SQLiteConfig{Path: path})
	require.NoError(t, err)
	l, err := NewSQLiteLedger(db)
	require.NoError(t, err)

	_, err = l.Record(ctx, fp, corrections.VerdictAccepted, "doc-1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer db.Close()
	l, err = NewSQLiteLedger(db)
	require.NoError(t, err)

	records, err := l.Scan(ctx, fp)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
