package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// leaseAttempts bounds the candidate loop in Lease. Each attempt targets a
// distinct candidate row, so losing this many races in a row means the queue
// is hot enough that the caller should just poll again.
const leaseAttempts = 10

// Lease claims the next runnable job for a worker. Runnable means pending,
// or running with an expired lease left behind by a dead worker. The claim
// is a conditional update on the candidate's prior state; when two workers
// chase the same row only one update sticks and the loser moves on to the
// next candidate. Returns nil when no job is runnable.
func (s *Store) Lease(ctx context.Context, workerID string, leaseDuration time.Duration) (*Job, error) {
	if workerID == "" {
		return nil, errors.New("worker id is required")
	}
	if leaseDuration <= 0 {
		return nil, errors.New("lease duration must be positive")
	}
	ctx = ensureContext(ctx)

	for attempt := 0; attempt < leaseAttempts; attempt++ {
		now := time.Now().UTC()
		nowMS := now.UnixMilli()

		var candidateID int64
		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM jobs
             WHERE status = ? OR (status = ? AND lease_expires_ms IS NOT NULL AND lease_expires_ms <= ?)
             ORDER BY priority, created_at, id LIMIT 1`,
			StatusPending,
			StatusRunning,
			nowMS,
		)
		if err := row.Scan(&candidateID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select lease candidate: %w", err)
		}

		timestamp := now.Format(time.RFC3339Nano)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, worker_id = ?, lease_expires_ms = ?,
                 started_at = COALESCE(started_at, ?), updated_at = ?
             WHERE id = ?
               AND (status = ? OR (status = ? AND lease_expires_ms IS NOT NULL AND lease_expires_ms <= ?))`,
			StatusRunning,
			workerID,
			now.Add(leaseDuration).UnixMilli(),
			timestamp,
			timestamp,
			candidateID,
			StatusPending,
			StatusRunning,
			nowMS,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race for this candidate; try the next one.
			continue
		}
		return s.GetByID(ctx, candidateID)
	}
	return nil, nil
}

// Renew extends the lease on a running job. The extension only applies while
// the worker still owns the job.
func (s *Store) Renew(ctx context.Context, jobID int64, workerID string, leaseDuration time.Duration) error {
	if leaseDuration <= 0 {
		return errors.New("lease duration must be positive")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET lease_expires_ms = ?, updated_at = ?
         WHERE id = ? AND status = ? AND worker_id = ?`,
		now.Add(leaseDuration).UnixMilli(),
		now.Format(time.RFC3339Nano),
		jobID,
		StatusRunning,
		workerID,
	)
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Complete finishes a job successfully, recording an optional result.
func (s *Store) Complete(ctx context.Context, jobID int64, workerID string, resultJSON string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, result_json = ?, worker_id = NULL, lease_expires_ms = NULL,
             finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ? AND worker_id = ?`,
		StatusCompleted,
		nullableString(resultJSON),
		timestamp,
		timestamp,
		jobID,
		StatusRunning,
		workerID,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Fail records a failed attempt. The job goes back to pending while retries
// remain and becomes terminally failed once the budget is spent. The returned
// job reflects the post-failure state so callers can tell the two apart.
func (s *Store) Fail(ctx context.Context, jobID int64, workerID string, errorMessage string) (*Job, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = CASE WHEN retry_count >= max_retries THEN ? ELSE ? END,
             finished_at = CASE WHEN retry_count >= max_retries THEN ? ELSE NULL END,
             retry_count = retry_count + 1,
             error_message = ?,
             worker_id = NULL,
             lease_expires_ms = NULL,
             updated_at = ?
         WHERE id = ? AND status = ? AND worker_id = ?`,
		StatusFailed,
		StatusPending,
		timestamp,
		errorMessage,
		timestamp,
		jobID,
		StatusRunning,
		workerID,
	)
	if err != nil {
		return nil, fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrLeaseLost
	}
	return s.GetByID(ctx, jobID)
}
