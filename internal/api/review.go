package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/textutil"
)

// ApproveParams carries a manual approval. The override fields are recorded
// separately from the classifier's suggestion; the commit prefers them but
// the suggestion stays visible for later comparison.
type ApproveParams struct {
	DocumentID int64
	ApprovedBy string

	Category          string
	TargetPath        string
	SuggestedFilename string
}

// Approve accepts a classification and queues the commit. Documents in
// analyzed or needs_review can be approved; anything else is a validation
// error.
func (s *Service) Approve(ctx context.Context, params ApproveParams) (*docstore.Document, error) {
	doc, err := s.docs.GetByID(ctx, params.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != docstore.StatusAnalyzed && doc.Status != docstore.StatusNeedsReview {
		return nil, services.Wrap(services.ErrValidation, "review", "approve",
			fmt.Sprintf("document is %s, only analyzed or needs_review can be approved", doc.Status), nil)
	}

	approvedBy := strings.TrimSpace(params.ApprovedBy)
	if approvedBy == "" {
		approvedBy = "operator"
	}
	if v := textutil.SanitizeToken(params.Category); v != "" {
		doc.UserCategory = v
	}
	if v := strings.TrimSpace(params.TargetPath); v != "" {
		doc.UserTargetPath = strings.Trim(v, "/")
	}
	if v := textutil.SanitizeFileName(params.SuggestedFilename); v != "" {
		doc.UserFilename = v
	}
	if doc.EffectiveCategory() == "" {
		return nil, services.Wrap(services.ErrValidation, "review", "approve",
			"document has no category, supply one to approve", nil)
	}
	doc.ApprovedBy = approvedBy
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	detail, _ := json.Marshal(map[string]any{
		"category":    doc.EffectiveCategory(),
		"target_path": doc.EffectiveTargetPath(),
		"approved_by": approvedBy,
	})
	doc, err = s.docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       doc.Status,
		To:         docstore.StatusApproved,
		Actor:      approvedBy,
		EventType:  docstore.EventApproved,
		DetailJSON: string(detail),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeCommit,
		DocumentID: doc.ID,
	}); err != nil {
		return nil, fmt.Errorf("queue commit: %w", err)
	}
	s.logger.Info("document approved",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("approved_by", approvedBy),
	)
	return doc, nil
}

// Reject marks a document as an error with an operator-supplied reason.
func (s *Service) Reject(ctx context.Context, documentID int64, actor, reason string) (*docstore.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !docstore.CanTransition(doc.Status, docstore.StatusError) {
		return nil, services.Wrap(services.ErrValidation, "review", "reject",
			fmt.Sprintf("document is %s and cannot be rejected", doc.Status), nil)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = "operator"
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "rejected by operator"
	}
	detail, _ := json.Marshal(map[string]any{"reason": reason})
	doc, err = s.docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID:   doc.ID,
		From:         doc.Status,
		To:           docstore.StatusError,
		Actor:        actor,
		EventType:    docstore.EventRejected,
		DetailJSON:   string(detail),
		ErrorMessage: reason,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document rejected",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("reason", reason),
	)
	return doc, nil
}

// Reset returns an errored document to the start of the pipeline and queues
// a fresh extraction. The stored file stays wherever it is, including the
// errors zone.
func (s *Service) Reset(ctx context.Context, documentID int64, actor string) (*docstore.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != docstore.StatusError {
		return nil, services.Wrap(services.ErrValidation, "review", "reset",
			fmt.Sprintf("document is %s, only error documents can be reset", doc.Status), nil)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = "operator"
	}
	doc, err = s.docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       docstore.StatusError,
		To:         docstore.StatusIngested,
		Actor:      actor,
		EventType:  docstore.EventReset,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeExtract,
		DocumentID: doc.ID,
	}); err != nil {
		return nil, fmt.Errorf("queue extraction: %w", err)
	}
	s.logger.Info("document reset",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("actor", actor),
	)
	return doc, nil
}
