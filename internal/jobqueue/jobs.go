package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnqueueParams carries the fields for a new job.
type EnqueueParams struct {
	Type        Type
	DocumentID  int64
	Priority    int
	PayloadJSON string

	// MaxRetries overrides the store default when positive.
	MaxRetries int
}

// Enqueue inserts a pending job.
func (s *Store) Enqueue(ctx context.Context, params EnqueueParams) (*Job, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("unknown job type %q", params.Type)
	}
	if params.DocumentID <= 0 {
		return nil, errors.New("document id is required")
	}
	priority := params.Priority
	if priority <= 0 {
		priority = 100
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.maxRetries
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (job_type, document_id, status, priority, max_retries, payload_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Type,
		params.DocumentID,
		StatusPending,
		priority,
		maxRetries,
		nullableString(params.PayloadJSON),
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

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		placeholders := makePlaceholders(len(statuses))
		query += ` WHERE status IN (` + placeholders + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

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
	return jobs, rows.Err()
}

// ListByDocument returns a document's jobs in creation order.
func (s *Store) ListByDocument(ctx context.Context, documentID int64) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE document_id = ? ORDER BY id`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by document: %w", err)
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
	return jobs, rows.Err()
}

// Cancel aborts a job that has not started yet.
func (s *Store) Cancel(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, finished_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusCancelled,
		timestamp,
		timestamp,
		id,
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotCancellable
	}
	return nil
}

// Retry returns a terminally failed job to the pending pool with a fresh
// retry budget.
func (s *Store) Retry(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, retry_count = 0, error_message = NULL,
             worker_id = NULL, lease_expires_ms = NULL,
             started_at = NULL, finished_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		timestamp,
		id,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotRetryable
	}
	return nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ClearCompleted removes completed jobs older than the cutoff.
func (s *Store) ClearCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status = ? AND finished_at IS NOT NULL AND finished_at < ?`,
		StatusCompleted,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("clear completed jobs: %w", err)
	}
	return res.RowsAffected()
}
