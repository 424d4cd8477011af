package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewChunk carries the fields for one chunk insert.
type NewChunk struct {
	Seq           int
	Text          string
	TokenEstimate int
}

// ReplaceChunks atomically swaps a document's chunk set. Re-running the chunk
// stage therefore never leaves a mix of old and new chunks behind.
func (s *Store) ReplaceChunks(ctx context.Context, documentID int64, chunks []NewChunk) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin chunk tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		for _, chunk := range chunks {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO chunks (document_id, seq, text, token_estimate, created_at)
                 VALUES (?, ?, ?, ?, ?)`,
				documentID,
				chunk.Seq,
				chunk.Text,
				chunk.TokenEstimate,
				timestamp,
			); err != nil {
				return fmt.Errorf("insert chunk %d: %w", chunk.Seq, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit chunks: %w", err)
		}
		return nil
	})
}

// ChunksByDocument returns a document's chunks in sequence order.
func (s *Store) ChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, document_id, seq, text, token_estimate, vector_key, created_at
         FROM chunks WHERE document_id = ? ORDER BY seq`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// UnembeddedChunks returns chunks that do not yet have a vector key, in
// sequence order. The embed stage resumes from here after an interruption.
func (s *Store) UnembeddedChunks(ctx context.Context, documentID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, document_id, seq, text, token_estimate, vector_key, created_at
         FROM chunks WHERE document_id = ? AND vector_key IS NULL ORDER BY seq`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query unembedded chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// SetChunkVector records the vector index key for an embedded chunk.
func (s *Store) SetChunkVector(ctx context.Context, chunkID int64, vectorKey string) error {
	if vectorKey == "" {
		return errors.New("vector key is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE chunks SET vector_key = ? WHERE id = ?`,
		vectorKey,
		chunkID,
	)
	if err != nil {
		return fmt.Errorf("set chunk vector: %w", err)
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

func scanChunk(scanner interface{ Scan(dest ...any) error }) (*Chunk, error) {
	var (
		id            int64
		documentID    int64
		seq           int
		text          string
		tokenEstimate int
		vectorKey     sql.NullString
		createdRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &documentID, &seq, &text, &tokenEstimate, &vectorKey, &createdRaw); err != nil {
		return nil, err
	}
	chunk := &Chunk{
		ID:            id,
		DocumentID:    documentID,
		Seq:           seq,
		Text:          text,
		TokenEstimate: tokenEstimate,
		VectorKey:     vectorKey.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		chunk.CreatedAt = created
	}
	return chunk, nil
}
