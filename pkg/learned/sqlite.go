package learned

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// SQLiteStore persists learned corrections so they survive process
// restarts. A cold start with an empty table is fine: lookups miss and
// the request path falls through to the cache and provider.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a learned store on an open database, creating
// its table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	query := `
	CREATE TABLE IF NOT EXISTS learned_corrections (
		fingerprint TEXT PRIMARY KEY,
		original TEXT NOT NULL,
		corrected TEXT NOT NULL,
		ratio REAL NOT NULL,
		sample_size INTEGER NOT NULL,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to initialize learned table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, fp fingerprint.Fingerprint) (corrections.LearnedEntry, bool, error) {
	query := `
	SELECT fingerprint, original, corrected, ratio, sample_size, state, updated_at
	FROM learned_corrections WHERE fingerprint = ?
	`

	var entry corrections.LearnedEntry
	var state string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, query, fp.String()).Scan(
		&entry.Fingerprint, &entry.Original, &entry.Corrected,
		&entry.Ratio, &entry.SampleSize, &state, &updatedAt)
	if err == sql.ErrNoRows {
		return corrections.LearnedEntry{}, false, nil
	}
	if err != nil {
		return corrections.LearnedEntry{}, false, errors.Wrap(err, errors.PersistenceFailure, "failed to look up learned entry")
	}

	entry.State = corrections.LearnedState(state)
	entry.UpdatedAt = time.Unix(0, updatedAt)
	return entry, true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, entry corrections.LearnedEntry) error {
	query := `
	INSERT OR REPLACE INTO learned_corrections
		(fingerprint, original, corrected, ratio, sample_size, state, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.Fingerprint, entry.Original, entry.Corrected,
		entry.Ratio, entry.SampleSize, string(entry.State), entry.UpdatedAt.UnixNano())
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailure, "failed to upsert learned entry"),
			errors.Fields{"fingerprint": entry.Fingerprint})
	}

	return nil
}

func (s *SQLiteStore) Retract(ctx context.Context, fp fingerprint.Fingerprint) error {
	query := `UPDATE learned_corrections SET state = ?, updated_at = ? WHERE fingerprint = ?`

	_, err := s.db.ExecContext(ctx, query,
		string(corrections.StateRetracted), time.Now().UnixNano(), fp.String())
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailure, "failed to retract learned entry")
	}

	return nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]corrections.LearnedEntry, error) {
	query := `
	SELECT fingerprint, original, corrected, ratio, sample_size, state, updated_at
	FROM learned_corrections ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to list learned entries")
	}
	defer rows.Close()

	var entries []corrections.LearnedEntry
	for rows.Next() {
		var entry corrections.LearnedEntry
		var state string
		var updatedAt int64

		if err := rows.Scan(&entry.Fingerprint, &entry.Original, &entry.Corrected,
			&entry.Ratio, &entry.SampleSize, &state, &updatedAt); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to scan learned row")
		}
		entry.State = corrections.LearnedState(state)
		entry.UpdatedAt = time.Unix(0, updatedAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to read learned rows")
	}
	return entries, nil
}

// Close is a no-op on the shared database handle; the owner of the
// *sql.DB closes it.
func (s *SQLiteStore) Close() error {
	return nil
}
