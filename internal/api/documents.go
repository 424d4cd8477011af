package api

import (
	"context"

	"docsort/internal/docstore"
)

// Document fetches a single document record.
func (s *Service) Document(ctx context.Context, id int64) (*docstore.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// Documents lists documents matching the filter, newest first.
func (s *Service) Documents(ctx context.Context, filter docstore.ListFilter) ([]*docstore.Document, error) {
	return s.docs.List(ctx, filter)
}

// DocumentAudit returns the audit trail for one document, oldest first.
func (s *Service) DocumentAudit(ctx context.Context, id int64) ([]*docstore.AuditEvent, error) {
	return s.docs.AuditByResource(ctx, docstore.ResourceDocument, id)
}

// RecentAudit returns the newest audit events across all resources.
func (s *Service) RecentAudit(ctx context.Context, limit int) ([]*docstore.AuditEvent, error) {
	return s.docs.RecentAudit(ctx, limit)
}
