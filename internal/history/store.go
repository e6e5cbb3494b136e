package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fenilsonani/dircompress/internal/reporter"
)

const schemaVersion = 1

// ErrSchemaMismatch is returned when the database was written by an
// incompatible version
var ErrSchemaMismatch = errors.New("history schema version mismatch")

const schemaSQL = `
CREATE TABLE schema_version (version INTEGER NOT NULL);
CREATE TABLE runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	target        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	dry_run       INTEGER NOT NULL,
	status        TEXT NOT NULL,
	min_size      INTEGER NOT NULL,
	saved_bytes   INTEGER NOT NULL,
	compressed    INTEGER NOT NULL,
	excluded_type INTEGER NOT NULL,
	too_small     INTEGER NOT NULL,
	failed        INTEGER NOT NULL,
	scan_errors   INTEGER NOT NULL
);
CREATE INDEX idx_runs_started_at ON runs(started_at);
`

const runColumns = "id, run_id, target, started_at, duration_ms, dry_run, status, min_size, saved_bytes, compressed, excluded_type, too_small, failed, scan_errors"

// Run is one recorded run
type Run struct {
	ID           int64
	RunID        string
	Target       string
	StartedAt    time.Time
	Duration     time.Duration
	DryRun       bool
	Status       string
	MinSize      int64
	SavedBytes   int64
	Compressed   int
	ExcludedType int
	TooSmall     int
	Failed       int
	ScanErrors   int
}

// Store keeps one row per run in SQLite
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Record appends one row for the run
func (s *Store) Record(ctx context.Context, sum reporter.Summary) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, target, started_at, duration_ms, dry_run, status, min_size,
			saved_bytes, compressed, excluded_type, too_small, failed, scan_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID,
		sum.Target,
		sum.Timestamp.UTC().Format(time.RFC3339Nano),
		sum.Duration.Milliseconds(),
		boolToInt(sum.DryRun),
		sum.Status(),
		sum.MinSize,
		sum.SavedBytes,
		len(sum.Compressed),
		len(sum.ExcludedType),
		sum.TooSmall,
		len(sum.Failed),
		sum.ScanErrors,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// List returns the newest runs first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TotalSaved sums saved bytes over real (non dry-run) runs
func (s *Store) TotalSaved(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT SUM(saved_bytes) FROM runs WHERE dry_run = 0").Scan(&total); err != nil {
		return 0, fmt.Errorf("sum saved bytes: %w", err)
	}
	return total.Int64, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		startedRaw string
		durationMS int64
		dryRun     int
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.Target,
		&startedRaw,
		&durationMS,
		&dryRun,
		&run.Status,
		&run.MinSize,
		&run.SavedBytes,
		&run.Compressed,
		&run.ExcludedType,
		&run.TooSmall,
		&run.Failed,
		&run.ScanErrors,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if startedRaw != "" {
		t, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return Run{}, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
		}
		run.StartedAt = t
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.DryRun = dryRun != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
