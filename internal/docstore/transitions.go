package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TransitionRequest describes one status change. From is the status the
// caller believes the document is in; the change only applies if that still
// holds when the update runs.
type TransitionRequest struct {
	DocumentID int64
	From       Status
	To         Status
	Actor      string
	EventType  string
	DetailJSON string

	// ErrorMessage and ReviewReason are set on the document when non-empty.
	ErrorMessage string
	ReviewReason string

	// MarkAnalyzed stamps analyzed_at even when To is not analyzed. The
	// review route uses it: analysis did finish, the outcome just needs a
	// human.
	MarkAnalyzed bool
}

// Transition moves a document to a new status. The status check, the update,
// and the audit event all happen in one transaction, so a lost race leaves no
// partial writes. Lifecycle timestamps are set once and never overwritten.
func (s *Store) Transition(ctx context.Context, req TransitionRequest) (*Document, error) {
	if !CanTransition(req.From, req.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.From, req.To)
	}
	actor := req.Actor
	if actor == "" {
		actor = ActorSystem
	}
	eventType := req.EventType
	if eventType == "" {
		eventType = EventTransitioned
	}

	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transition tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		query := `UPDATE documents SET status = ?, updated_at = ?`
		args := []any{req.To, timestamp}

		switch req.To {
		case StatusAnalyzed:
			query += `, analyzed_at = COALESCE(analyzed_at, ?)`
			args = append(args, timestamp)
		case StatusApproved:
			query += `, approved_at = COALESCE(approved_at, ?)`
			args = append(args, timestamp)
		case StatusCommitted:
			query += `, committed_at = COALESCE(committed_at, ?)`
			args = append(args, timestamp)
		case StatusIngested:
			// Reset path. Clear the failure so a rerun starts clean.
			query += `, error_message = NULL, review_reason = NULL`
		}
		if req.MarkAnalyzed && req.To != StatusAnalyzed {
			query += `, analyzed_at = COALESCE(analyzed_at, ?)`
			args = append(args, timestamp)
		}
		if req.ErrorMessage != "" {
			query += `, error_message = ?`
			args = append(args, req.ErrorMessage)
		}
		if req.ReviewReason != "" {
			query += `, review_reason = ?`
			args = append(args, req.ReviewReason)
		}

		query += ` WHERE id = ? AND status = ?`
		args = append(args, req.DocumentID, req.From)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("apply transition: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var current string
			row := tx.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = ?`, req.DocumentID)
			if scanErr := row.Scan(&current); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("read current status: %w", scanErr)
			}
			return fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, req.From, current)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO audit_events (resource_type, resource_id, event_type, actor, detail_json, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			ResourceDocument,
			req.DocumentID,
			eventType,
			actor,
			nullableString(req.DetailJSON),
			timestamp,
		); err != nil {
			return fmt.Errorf("record audit event: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, req.DocumentID)
}
