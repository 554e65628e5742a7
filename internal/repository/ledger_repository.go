package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vehicle-data-tools/internal/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	defaultLedgerPath = "data/migrations.db"
	// Fixed width so started_at sorts as text.
	ledgerTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// LedgerRepository records migration attempts in a local SQLite file.
type LedgerRepository struct {
	path string
	db   *sql.DB
}

// OpenLedger creates (if needed) and opens the ledger database.
func OpenLedger(path string) (*LedgerRepository, error) {
	if path == "" {
		path = defaultLedgerPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(ledgerSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &LedgerRepository{path: path, db: db}, nil
}

const ledgerSchemaSQL = `
CREATE TABLE IF NOT EXISTS migration_runs (
	id TEXT PRIMARY KEY,
	version TEXT NOT NULL,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	executor TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_migration_runs_version ON migration_runs (version, started_at);
`

// Path returns the path backing the ledger.
func (r *LedgerRepository) Path() string {
	return r.path
}

// Record inserts run, assigning an id when it has none.
func (r *LedgerRepository) Record(ctx context.Context, run *domain.MigrationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(ledgerTimeLayout), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO migration_runs (id, version, name, checksum, executor, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.Name, run.Checksum, run.Executor, string(run.Status),
		nullIfEmpty(run.Error), run.StartedAt.UTC().Format(ledgerTimeLayout), finished,
	)
	if err != nil {
		return fmt.Errorf("record migration run: %w", err)
	}
	return nil
}

// LatestApplied returns the most recent successful run for version, or
// nil when there is none.
func (r *LedgerRepository) LatestApplied(ctx context.Context, version string) (*domain.MigrationRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, version, name, checksum, executor, status, error, started_at, finished_at
		FROM migration_runs
		WHERE version = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1`, version, string(domain.RunStatusApplied))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// List returns the newest runs first.
func (r *LedgerRepository) List(ctx context.Context, limit int) ([]*domain.MigrationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, name, checksum, executor, status, error, started_at, finished_at
		FROM migration_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list migration runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.MigrationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the DB.
func (r *LedgerRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*domain.MigrationRun, error) {
	var (
		run       domain.MigrationRun
		status    string
		errText   sql.NullString
		startedAt string
		finished  sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Version, &run.Name, &run.Checksum, &run.Executor, &status, &errText, &startedAt, &finished); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.Error = errText.String

	started, err := time.Parse(ledgerTimeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started
	if finished.Valid {
		t, err := time.Parse(ledgerTimeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.RunLedger = (*LedgerRepository)(nil)
