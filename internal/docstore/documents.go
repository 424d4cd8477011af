package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewDocumentParams carries the fields known at ingest time.
type NewDocumentParams struct {
	ContentHash  string
	OriginalName string
	StoredPath   string
	MimeType     string
	SizeBytes    int64
	Title        string
	Status       Status
	CanonicalID  *int64
}

// Create inserts a new document record.
func (s *Store) Create(ctx context.Context, params NewDocumentParams) (*Document, error) {
	if params.ContentHash == "" {
		return nil, errors.New("content hash is required")
	}
	status := params.Status
	if status == "" {
		status = StatusIngested
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO documents (
            content_hash, original_name, stored_path, mime_type, size_bytes,
            status, title, canonical_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.ContentHash,
		params.OriginalName,
		nullableString(params.StoredPath),
		nullableString(params.MimeType),
		params.SizeBytes,
		status,
		nullableString(params.Title),
		nullableInt64(params.CanonicalID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a document by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// FindCanonicalByHash returns the canonical document for a content hash: the
// oldest non-duplicate row. A duplicate row never serves as a canonical, so
// lookups resolve in one hop even when the hash has been seen many times.
func (s *Store) FindCanonicalByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents
         WHERE content_hash = ? AND status != ?
         ORDER BY id LIMIT 1`,
		hash,
		StatusDuplicate,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return doc, nil
}

// ListFilter narrows List results. Zero values mean no constraint.
type ListFilter struct {
	Statuses []Status
	Category string
	Limit    int
	Offset   int
}

// List returns documents matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		placeholders := makePlaceholders(len(filter.Statuses))
		clauses = append(clauses, `status IN (`+placeholders+`)`)
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.Category != "" {
		clauses = append(clauses, `category = ?`)
		args = append(args, filter.Category)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Update persists changes to an existing document. Status is intentionally
// not part of the update; all status changes go through Transition.
func (s *Store) Update(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	doc.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET original_name = ?, stored_path = ?, final_path = ?, text_path = ?,
             mime_type = ?, size_bytes = ?, title = ?, ocr_needed = ?,
             page_count = ?, category = ?, suggested_filename = ?,
             target_path = ?, confidence = ?, classifier_source = ?,
             matched_rule = ?, trace_json = ?, user_category = ?,
             user_filename = ?, user_target_path = ?, review_reason = ?,
             error_message = ?, canonical_id = ?, approved_by = ?,
             updated_at = ?, analyzed_at = ?, approved_at = ?, committed_at = ?
         WHERE id = ?`,
		doc.OriginalName,
		nullableString(doc.StoredPath),
		nullableString(doc.FinalPath),
		nullableString(doc.TextPath),
		nullableString(doc.MimeType),
		doc.SizeBytes,
		nullableString(doc.Title),
		boolToInt(doc.OCRNeeded),
		doc.PageCount,
		nullableString(doc.Category),
		nullableString(doc.SuggestedFilename),
		nullableString(doc.TargetPath),
		nullableFloat(doc.Confidence),
		nullableString(doc.ClassifierSource),
		nullableString(doc.MatchedRule),
		nullableString(doc.TraceJSON),
		nullableString(doc.UserCategory),
		nullableString(doc.UserFilename),
		nullableString(doc.UserTargetPath),
		nullableString(doc.ReviewReason),
		nullableString(doc.ErrorMessage),
		nullableInt64(doc.CanonicalID),
		nullableString(doc.ApprovedBy),
		doc.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(doc.AnalyzedAt),
		nullableTime(doc.ApprovedAt),
		nullableTime(doc.CommittedAt),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns a count of documents grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
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
