package api

import (
	"context"
	"time"

	"docsort/internal/jobqueue"
)

// Jobs lists jobs filtered by status, newest first.
func (s *Service) Jobs(ctx context.Context, statuses ...jobqueue.Status) ([]*jobqueue.Job, error) {
	return s.jobs.List(ctx, statuses...)
}

// Job fetches one job record.
func (s *Service) Job(ctx context.Context, id int64) (*jobqueue.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

// JobsForDocument returns every job ever queued for a document.
func (s *Service) JobsForDocument(ctx context.Context, documentID int64) ([]*jobqueue.Job, error) {
	return s.jobs.ListByDocument(ctx, documentID)
}

// CancelJob cancels a pending job. Running jobs cannot be cancelled; their
// lease expires if the worker dies.
func (s *Service) CancelJob(ctx context.Context, id int64) error {
	return s.jobs.Cancel(ctx, id)
}

// RetryJob returns a terminally failed job to the pending pool. The document
// stays in whatever state the failure left it; a reset is the usual companion.
func (s *Service) RetryJob(ctx context.Context, id int64) error {
	return s.jobs.Retry(ctx, id)
}

// ClearCompletedJobs removes completed jobs finished before the retention
// window and returns the number deleted.
func (s *Service) ClearCompletedJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.jobs.ClearCompleted(ctx, time.Now().UTC().Add(-olderThan))
}
