package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("transfer job not found")

// lockTimeout bounds how long Open waits for a concurrent shuttle
// invocation to release the ledger.
const lockTimeout = 10 * time.Second

// Store persists transfer jobs in SQLite. A file lock beside the database
// serializes concurrent shuttle invocations.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the ledger database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "ledger.lock"))
	lockCtx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !locked {
		return nil, errors.New("ledger is locked by another shuttle process")
	}

	dbPath := filepath.Join(dir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the ledger lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Begin records a new pending transfer job and returns it.
func (s *Store) Begin(ctx context.Context, op Operation, source, destination string) (*Job, error) {
	if _, ok := ParseOperation(string(op)); !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	jobUUID := uuid.NewString()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transfer_jobs (uuid, operation, source, destination, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		jobUUID,
		string(op),
		source,
		destination,
		string(StatusPending),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// MarkRunning transitions a job to running.
func (s *Store) MarkRunning(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusRunning, "")
}

// MarkCompleted transitions a job to completed.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusCompleted, "")
}

// MarkFailed transitions a job to failed with the given message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.setStatus(ctx, id, StatusFailed, message)
}

func (s *Store) setStatus(ctx context.Context, id int64, status Status, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE transfer_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status),
		message,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID fetches a job by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return job, err
}

// GetByUUID fetches a job by its UUID.
func (s *Store) GetByUUID(ctx context.Context, jobUUID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+" WHERE uuid = ?", jobUUID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobUUID, ErrNotFound)
	}
	return job, err
}

// List returns the most recent jobs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	query := selectJobSQL + " ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Clear removes all recorded jobs.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transfer_jobs"); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	return nil
}

// Summary aggregates job counts per lifecycle state.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM transfer_jobs GROUP BY status")
	if err != nil {
		return Summary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

const selectJobSQL = `SELECT id, uuid, operation, source, destination, status, error_message, created_at, updated_at FROM transfer_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var operation, status, createdAt, updatedAt string
	if err := row.Scan(&job.ID, &job.UUID, &operation, &job.Source, &job.Destination, &status, &job.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	op, ok := ParseOperation(operation)
	if !ok {
		return nil, fmt.Errorf("job %d: unknown operation %q", job.ID, operation)
	}
	job.Operation = op

	parsedStatus, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("job %d: unknown status %q", job.ID, status)
	}
	job.Status = parsedStatus

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("job %d: parse created_at: %w", job.ID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("job %d: parse updated_at: %w", job.ID, err)
	}
	return &job, nil
}
