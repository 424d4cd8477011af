package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendAudit records an audit event outside a transition, for events like
// ingest and rule changes that are not status changes.
func (s *Store) AppendAudit(ctx context.Context, event AuditEvent) error {
	actor := event.Actor
	if actor == "" {
		actor = ActorSystem
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO audit_events (resource_type, resource_id, event_type, actor, detail_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.ResourceType,
		event.ResourceID,
		event.EventType,
		actor,
		nullableString(event.DetailJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// AuditByResource returns a resource's audit trail, oldest first.
func (s *Store) AuditByResource(ctx context.Context, resourceType string, resourceID int64) ([]*AuditEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+auditColumns+` FROM audit_events
         WHERE resource_type = ? AND resource_id = ? ORDER BY id`,
		resourceType,
		resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

// RecentAudit returns the newest audit events across all resources.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+auditColumns+` FROM audit_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()
	return collectAuditEvents(rows)
}

const auditColumns = "id, resource_type, resource_id, event_type, actor, detail_json, created_at"

func collectAuditEvents(rows *sql.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var (
			event      AuditEvent
			detail     sql.NullString
			createdRaw sql.NullString
		)
		if err := rows.Scan(
			&event.ID,
			&event.ResourceType,
			&event.ResourceID,
			&event.EventType,
			&event.Actor,
			&detail,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		event.DetailJSON = detail.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			event.CreatedAt = created
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
