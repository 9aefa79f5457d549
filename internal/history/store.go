package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// createdLayout keeps created_at lexically sortable.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Dispatch outcomes.
const (
	OutcomeParsed      = "parsed"
	OutcomeFailed      = "failed"
	OutcomeDisappeared = "disappeared"
	OutcomeAbandoned   = "abandoned"
	OutcomeSkipped     = "skipped"
	OutcomeCancelled   = "cancelled"
)

// Entry is one ledger row.
type Entry struct {
	ID             int64
	Path           string
	Outcome        string
	Reason         string
	StatusCode     int
	Detail         string
	RequestID      string
	Size           int64
	Restarts       int
	StabilityWait  time.Duration
	ParseDuration  time.Duration
	MatchStartedAt time.Time
	CreatedAt      time.Time
}

// Store manages the ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

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

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

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
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a fresh ledger)",
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

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record appends an entry and returns its row id. A zero CreatedAt is
// replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Path) == "" {
		return 0, errors.New("history entry requires a replay path")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	started := ""
	if !e.MatchStartedAt.IsZero() {
		started = e.MatchStartedAt.UTC().Format(time.RFC3339)
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `INSERT INTO dispatches
			(replay_path, outcome, reason, status_code, detail, request_id, size_bytes, restarts,
			 stability_wait_ms, parse_ms, match_started_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Path, e.Outcome, e.Reason, e.StatusCode, e.Detail, e.RequestID, e.Size, e.Restarts,
			e.StabilityWait.Milliseconds(), e.ParseDuration.Milliseconds(), started,
			e.CreatedAt.UTC().Format(createdLayout))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert dispatch: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, replay_path, outcome, reason, status_code, detail, request_id, size_bytes,
		restarts, stability_wait_ms, parse_ms, match_started_at, created_at
		FROM dispatches ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			waitMS, parseMS    int64
			startedAt, created string
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Outcome, &e.Reason, &e.StatusCode, &e.Detail, &e.RequestID,
			&e.Size, &e.Restarts, &waitMS, &parseMS, &startedAt, &created); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		e.StabilityWait = time.Duration(waitMS) * time.Millisecond
		e.ParseDuration = time.Duration(parseMS) * time.Millisecond
		e.MatchStartedAt = parseTime(startedAt)
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns entry counts keyed by outcome.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM dispatches GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

// PruneBefore deletes entries created before cutoff and returns how many were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, "DELETE FROM dispatches WHERE created_at < ?",
			cutoff.UTC().Format(createdLayout))
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune dispatches: %w", err)
	}
	return res.RowsAffected()
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
