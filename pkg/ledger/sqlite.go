package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/errors"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/logging"
)

// SQLiteLedger persists feedback records in SQLite so they survive
// process restarts.
type SQLiteLedger struct {
	db *sql.DB
}

// SQLiteConfig holds SQLite-specific configuration shared by the
// ledger and the learned store.
type SQLiteConfig struct {
	// Path to the SQLite database file
	Path string `json:"path" yaml:"path"`

	// Enable WAL mode for better concurrent performance
	EnableWAL bool `json:"enable_wal" yaml:"enable_wal"`

	// Maximum number of connections
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

// OpenDB opens a SQLite database with the pragmas the pipeline's
// stores rely on. The ledger and the learned store may share one DB.
func OpenDB(config SQLiteConfig) (*sql.DB, error) {
	if config.Path == "" {
		config.Path = "corrigo.db"
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if config.MaxConnections > 0 {
		db.SetMaxOpenConns(config.MaxConnections)
	} else {
		db.SetMaxOpenConns(10)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if config.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	pragmas := []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Pragma tuning is best-effort
			logging.GetLogger().Warn(context.Background(), "failed to set pragma %s: %v", pragma, err)
		}
	}

	return db, nil
}

// NewSQLiteLedger creates a ledger on an open database, creating its
// table if needed.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	query := `
	CREATE TABLE IF NOT EXISTS feedback_records (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		verdict TEXT NOT NULL,
		document_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_fingerprint ON feedback_records(fingerprint, created_at);
	`

	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to initialize feedback table: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Record(ctx context.Context, fp fingerprint.Fingerprint, verdict corrections.Verdict, documentID string) (corrections.FeedbackRecord, error) {
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

	query := `
	INSERT INTO feedback_records (id, fingerprint, verdict, document_id, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.Fingerprint, string(rec.Verdict), rec.DocumentID, rec.CreatedAt.UnixNano())
	if err != nil {
		// The caller must be able to retry the append
		return corrections.FeedbackRecord{}, errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailure, "failed to append feedback record"),
			errors.Fields{"fingerprint": fp.String()})
	}

	return rec, nil
}

func (l *SQLiteLedger) Scan(ctx context.Context, fp fingerprint.Fingerprint) ([]corrections.FeedbackRecord, error) {
	query := `
	SELECT id, fingerprint, verdict, document_id, created_at
	FROM feedback_records WHERE fingerprint = ? ORDER BY created_at ASC, id ASC
	`

	rows, err := l.db.QueryContext(ctx, query, fp.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to scan feedback records")
	}
	defer rows.Close()

	var records []corrections.FeedbackRecord
	for rows.Next() {
		var rec corrections.FeedbackRecord
		var verdict string
		var createdAt int64

		if err := rows.Scan(&rec.ID, &rec.Fingerprint, &verdict, &rec.DocumentID, &createdAt); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to scan feedback row")
		}
		rec.Verdict = corrections.Verdict(verdict)
		rec.CreatedAt = time.Unix(0, createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to read feedback rows")
	}
	return records, nil
}

func (l *SQLiteLedger) Fingerprints(ctx context.Context) ([]fingerprint.Fingerprint, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT fingerprint FROM feedback_records`)
	if err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to list fingerprints")
	}
	defer rows.Close()

	var fps []fingerprint.Fingerprint
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to scan fingerprint")
		}
		fps = append(fps, fingerprint.Fingerprint(fp))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailure, "failed to read fingerprints")
	}
	return fps, nil
}

// Close is a no-op on the shared database handle; the owner of the
// *sql.DB closes it.
func (l *SQLiteLedger) Close() error {
	return nil
}
