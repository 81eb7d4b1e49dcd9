package learned

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/ledger"
)

func testStores(t *testing.T) map[string]Store {
	db, err := ledger.OpenDB(ledger.SQLiteConfig{Path: filepath.Join(t.TempDir(), "learned.db"), EnableWAL: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlite, err := NewSQLiteStore(db)
	require.NoError(t, err)

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func sampleEntry(fp string) corrections.LearnedEntry {
	return corrections.LearnedEntry{
		Fingerprint: fp,
		Original:    "ando al mare",
		Corrected:   "andò al mare",
		Ratio:       1.0,
		SampleSize:  3,
		State:       corrections.StateLearned,
		UpdatedAt:   time.Now(),
	}
}

func TestStore_LookupMiss(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Lookup(context.Background(), "fp-missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_UpsertAndLookup(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entry := sampleEntry("fp-upsert")
			require.NoError(t, s.Upsert(ctx, entry))

			got, ok, err := s.Lookup(ctx, fingerprint.Fingerprint(entry.Fingerprint))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entry.Corrected, got.Corrected)
			assert.Equal(t, corrections.StateLearned, got.State)
			assert.True(t, got.Active())

			// Upsert replaces, it does not accumulate
			entry.Ratio = 0.8
			entry.SampleSize = 5
			require.NoError(t, s.Upsert(ctx, entry))

			got, ok, err = s.Lookup(ctx, fingerprint.Fingerprint(entry.Fingerprint))
			require.NoError(t, err)
			require.True(t, ok)
			assert.InDelta(t, 0.8, got.Ratio, 1e-9)
			assert.Equal(t, 5, got.SampleSize)
		})
	}
}

func TestStore_Retract(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entry := sampleEntry("fp-retract")
			require.NoError(t, s.Upsert(ctx, entry))
			require.NoError(t, s.Retract(ctx, fingerprint.Fingerprint(entry.Fingerprint)))

			// History is kept; the entry just stops serving
			got, ok, err := s.Lookup(ctx, fingerprint.Fingerprint(entry.Fingerprint))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, corrections.StateRetracted, got.State)
			assert.False(t, got.Active())
			assert.Equal(t, entry.Corrected, got.Corrected)
		})
	}
}

func TestStore_All(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Upsert(ctx, sampleEntry("fp-a")))
			require.NoError(t, s.Upsert(ctx, sampleEntry("fp-b")))

			entries, err := s.All(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learned.db")
	ctx := context.Background()

	db, err := ledger.OpenDB(ledger.SQLiteConfig{Path: path})
	require.NoError(t, err)
	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, sampleEntry("fp-durable")))
	require.NoError(t, db.Close())

	db, err = ledger.OpenDB(ledger.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer db.Close()
	s, err = NewSQLiteStore(db)
	require.NoError(t, err)

	got, ok, err := s.Lookup(ctx, "fp-durable")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "andò al mare", got.Corrected)
	assert.True(t, got.Active())
}
