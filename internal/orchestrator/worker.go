package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
)

// nextStage maps each finished stage to the one that follows it. Classify
// has no fixed successor; commit is queued only once the document is
// approved, which auto-approval may have done already.
var nextStage = map[jobqueue.Type]jobqueue.Type{
	jobqueue.TypeExtract: jobqueue.TypeChunk,
	jobqueue.TypeChunk:   jobqueue.TypeEmbed,
	jobqueue.TypeEmbed:   jobqueue.TypeClassify,
}

// runWorker is one worker loop: lease, dispatch, chain, repeat.
func (m *Manager) runWorker(ctx context.Context, workerID string) {
	leaseDuration := time.Duration(m.cfg.Workflow.LeaseDuration) * time.Second
	pollInterval := time.Duration(m.cfg.Workflow.PollInterval) * time.Second
	logger := m.logger.With(logging.String(logging.FieldWorkerID, workerID))

	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.jobs.Lease(ctx, workerID, leaseDuration)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("lease failed", logging.Error(err))
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}
		m.processJob(ctx, workerID, job)
	}
}

func (m *Manager) processJob(ctx context.Context, workerID string, job *jobqueue.Job) {
	leaseDuration := time.Duration(m.cfg.Workflow.LeaseDuration) * time.Second

	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithWorkerID(jobCtx, workerID)
	jobCtx = services.WithStage(jobCtx, string(job.Type))
	jobCtx = services.WithDocumentID(jobCtx, job.DocumentID)
	logger := logging.WithContext(jobCtx, m.logger)

	handler, ok := m.handlers[job.Type]
	if !ok {
		logger.Error("no handler for job type", logging.String("job_type", string(job.Type)))
		m.failJob(jobCtx, workerID, job, fmt.Errorf("no handler registered for %q", job.Type))
		return
	}

	doc, err := m.docs.GetByID(jobCtx, job.DocumentID)
	if err != nil {
		m.failJob(jobCtx, workerID, job,
			services.Wrap(services.ErrNotFound, string(job.Type), "load document",
				"document record is missing", err))
		return
	}

	// Renew the lease in the background while the stage runs. Losing the
	// lease cancels the stage so two workers never both write the outcome.
	stageCtx, cancelStage := context.WithCancel(jobCtx)
	var renewWG sync.WaitGroup
	renewWG.Add(1)
	go func() {
		defer renewWG.Done()
		ticker := time.NewTicker(leaseDuration / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stageCtx.Done():
				return
			case <-ticker.C:
				if err := m.jobs.Renew(stageCtx, job.ID, workerID, leaseDuration); err != nil {
					if errors.Is(err, jobqueue.ErrLeaseLost) {
						logger.Warn("lease lost, cancelling stage")
						cancelStage()
						return
					}
					if stageCtx.Err() == nil {
						logger.Warn("lease renewal failed", logging.Error(err))
					}
				}
			}
		}
	}()

	logger.Info("stage started", logging.String("job_type", string(job.Type)))
	stageErr := handler.Execute(stageCtx, job, doc)
	cancelStage()
	renewWG.Wait()

	if stageErr != nil {
		m.failJob(jobCtx, workerID, job, stageErr)
		return
	}

	if err := m.jobs.Complete(jobCtx, job.ID, workerID, ""); err != nil {
		if errors.Is(err, jobqueue.ErrLeaseLost) {
			// The reclaimer's worker owns the job now and will chain it.
			logger.Warn("completion refused, lease was reclaimed")
			return
		}
		logger.Error("could not complete job", logging.Error(err))
		return
	}
	logger.Info("stage completed", logging.String("job_type", string(job.Type)))

	if err := m.enqueueNext(jobCtx, job); err != nil {
		logger.Error("could not queue next stage", logging.Error(err))
	}
}

// enqueueNext chains the following pipeline stage for the document.
func (m *Manager) enqueueNext(ctx context.Context, job *jobqueue.Job) error {
	if next, ok := nextStage[job.Type]; ok {
		_, err := m.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
			Type:       next,
			DocumentID: job.DocumentID,
		})
		return err
	}
	if job.Type != jobqueue.TypeClassify {
		return nil
	}
	// After classify the document decides: auto-approved documents go
	// straight to commit, everything else waits for a human.
	doc, err := m.docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if doc.Status != docstore.StatusApproved {
		return nil
	}
	_, err = m.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeCommit,
		DocumentID: job.DocumentID,
	})
	return err
}

// failJob records the failed attempt and, once retries are exhausted, routes
// the document to review or to the error state.
func (m *Manager) failJob(ctx context.Context, workerID string, job *jobqueue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)
	message := strings.TrimSpace(stageErr.Error())

	failed, err := m.jobs.Fail(ctx, job.ID, workerID, message)
	if err != nil {
		if errors.Is(err, jobqueue.ErrLeaseLost) {
			logger.Warn("failure report refused, lease was reclaimed")
			return
		}
		logger.Error("could not record job failure", logging.Error(err))
		return
	}

	// Every failed attempt leaves a trace on the document's audit trail,
	// not just the terminal one.
	attemptDetail, _ := json.Marshal(map[string]any{
		"job_id":      job.ID,
		"job_type":    string(job.Type),
		"retry_count": failed.RetryCount,
		"error":       message,
	})
	if err := m.docs.AppendAudit(ctx, docstore.AuditEvent{
		ResourceType: docstore.ResourceDocument,
		ResourceID:   job.DocumentID,
		EventType:    docstore.EventStageFailed,
		Actor:        docstore.ActorPipeline,
		DetailJSON:   string(attemptDetail),
	}); err != nil {
		logger.Warn("could not record failed attempt", logging.Error(err))
	}

	if failed.Status != jobqueue.StatusFailed {
		logger.Warn("stage failed, will retry",
			logging.String("job_type", string(job.Type)),
			logging.Int("retry_count", failed.RetryCount),
			logging.Error(stageErr),
		)
		return
	}

	logger.Error("stage failed terminally",
		logging.String("job_type", string(job.Type)),
		logging.Error(stageErr),
	)
	m.routeDocumentFailure(ctx, job, stageErr, message)
}

// routeDocumentFailure moves the document to needs_review for failures a
// human can fix, or to error with the file parked in the errors zone.
func (m *Manager) routeDocumentFailure(ctx context.Context, job *jobqueue.Job, stageErr error, message string) {
	logger := logging.WithContext(ctx, m.logger)

	doc, err := m.docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		logger.Error("could not load document for failure routing", logging.Error(err))
		return
	}

	detail, _ := json.Marshal(map[string]any{
		"job_id":   job.ID,
		"job_type": string(job.Type),
		"error":    message,
	})

	if services.Classify(stageErr) == services.FailureReview &&
		docstore.CanTransition(doc.Status, docstore.StatusNeedsReview) {
		_, err := m.docs.Transition(ctx, docstore.TransitionRequest{
			DocumentID:   doc.ID,
			From:         doc.Status,
			To:           docstore.StatusNeedsReview,
			Actor:        docstore.ActorPipeline,
			EventType:    docstore.EventFailed,
			DetailJSON:   string(detail),
			ReviewReason: message,
		})
		if err != nil {
			logger.Error("could not route document to review", logging.Error(err))
		}
		return
	}

	if !docstore.CanTransition(doc.Status, docstore.StatusError) {
		logger.Warn("document not routable to error state",
			logging.String("status", string(doc.Status)))
		return
	}
	updated, err := m.docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID:   doc.ID,
		From:         doc.Status,
		To:           docstore.StatusError,
		Actor:        docstore.ActorPipeline,
		EventType:    docstore.EventFailed,
		DetailJSON:   string(detail),
		ErrorMessage: message,
	})
	if err != nil {
		logger.Error("could not route document to error state", logging.Error(err))
		return
	}

	// Park the file so a cleanup of the ingested zone cannot discard the
	// evidence. Reset brings the record back; the file stays readable. The
	// path write goes through the transitioned record so the error message
	// it just gained survives the update.
	if updated.StoredPath != "" {
		parked, err := m.layout.MoveToErrors(updated.StoredPath, filepath.Base(updated.StoredPath))
		if err != nil {
			logger.Warn("could not park failed file", logging.Error(err))
			return
		}
		updated.StoredPath = parked
		if err := m.docs.Update(ctx, updated); err != nil {
			logger.Warn("could not record parked file location", logging.Error(err))
		}
	}
}
