package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"docsort/internal/config"
	"docsort/internal/contenthash"
	"docsort/internal/docstore"
	"docsort/internal/extraction"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/storage"
	"docsort/internal/textutil"
)

// Ingester brings new files under management: hash, duplicate check,
// verified move into the ingested zone, document record, first job.
type Ingester struct {
	cfg    *config.Config
	docs   *docstore.Store
	jobs   *jobqueue.Store
	layout *storage.Layout
	logger *slog.Logger
}

// NewIngester constructs an ingester.
func NewIngester(cfg *config.Config, docs *docstore.Store, jobs *jobqueue.Store, layout *storage.Layout, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingester{cfg: cfg, docs: docs, jobs: jobs, layout: layout, logger: logger}
}

// Ingest takes ownership of the file at srcPath. Duplicates are recorded
// against their canonical document and never enter the pipeline; everything
// else is stored content-addressed and queued for extraction.
func (i *Ingester) Ingest(ctx context.Context, srcPath string) (*docstore.Document, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "ingest", "stat file",
			"file is not readable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "ingest", "stat file",
			"path is a directory", nil)
	}

	hash, err := contenthash.HashFile(srcPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "hash file",
			"could not hash content", err)
	}
	originalName := filepath.Base(srcPath)
	logger := logging.WithContext(ctx, i.logger)

	canonical, err := i.docs.FindCanonicalByHash(ctx, hash)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "duplicate check",
			"could not look up content hash", err)
	}
	if canonical != nil {
		doc, err := i.recordDuplicate(ctx, srcPath, hash, originalName, info.Size(), canonical)
		if err != nil {
			return nil, err
		}
		logger.Info("duplicate ingested",
			logging.Int64(logging.FieldDocumentID, doc.ID),
			logging.Int64("canonical_id", canonical.ID),
			logging.String("file", originalName),
		)
		return doc, nil
	}

	mimeType, err := extraction.DetectMimeType(srcPath)
	if err != nil {
		mimeType = "application/octet-stream"
	}

	storedPath, err := i.layout.PlaceIngested(srcPath, hash)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "store file",
			"could not move file into the ingested zone", err)
	}

	doc, err := i.docs.Create(ctx, docstore.NewDocumentParams{
		ContentHash:  hash,
		OriginalName: originalName,
		StoredPath:   storedPath,
		MimeType:     mimeType,
		SizeBytes:    info.Size(),
		Title:        textutil.DisplayTitle(originalName),
	})
	if docstore.IsUniqueViolation(err) {
		// A concurrent ingest of the same content won the canonical row
		// between the duplicate check and this insert. The file already
		// sits content-addressed under the winner, so only the duplicate
		// marker is left to write.
		canonical, lookupErr := i.docs.FindCanonicalByHash(ctx, hash)
		if lookupErr != nil || canonical == nil {
			return nil, services.Wrap(services.ErrTransient, "ingest", "create record",
				"lost canonical race but cannot resolve winner", lookupErr)
		}
		dup, dupErr := i.createDuplicateRecord(ctx, hash, originalName, info.Size(), canonical)
		if dupErr != nil {
			return nil, dupErr
		}
		logger.Info("duplicate ingested",
			logging.Int64(logging.FieldDocumentID, dup.ID),
			logging.Int64("canonical_id", canonical.ID),
			logging.String("file", originalName),
		)
		return dup, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "create record",
			"could not create document record", err)
	}

	detail, _ := json.Marshal(map[string]any{
		"original_name": originalName,
		"content_hash":  hash,
		"size_bytes":    info.Size(),
	})
	if err := i.docs.AppendAudit(ctx, docstore.AuditEvent{
		ResourceType: docstore.ResourceDocument,
		ResourceID:   doc.ID,
		EventType:    docstore.EventIngested,
		Actor:        docstore.ActorSystem,
		DetailJSON:   string(detail),
	}); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "audit",
			"could not record ingest event", err)
	}

	if _, err := i.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeExtract,
		DocumentID: doc.ID,
	}); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "enqueue",
			"could not queue extraction", err)
	}

	logger.Info("document ingested",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("file", originalName),
		logging.String("content_hash", hash),
	)
	return doc, nil
}

// recordDuplicate creates the duplicate marker record and removes the inbox
// copy. No job is ever queued for a duplicate.
func (i *Ingester) recordDuplicate(ctx context.Context, srcPath, hash, originalName string, size int64, canonical *docstore.Document) (*docstore.Document, error) {
	doc, err := i.createDuplicateRecord(ctx, hash, originalName, size, canonical)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(srcPath); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "discard duplicate",
			fmt.Sprintf("could not remove duplicate inbox file %s", srcPath), err)
	}
	return doc, nil
}

// createDuplicateRecord writes the duplicate row and its audit event without
// touching any file. The race-loser path uses it directly: by then the inbox
// file has already been absorbed into the ingested zone.
func (i *Ingester) createDuplicateRecord(ctx context.Context, hash, originalName string, size int64, canonical *docstore.Document) (*docstore.Document, error) {
	doc, err := i.docs.Create(ctx, docstore.NewDocumentParams{
		ContentHash:  hash,
		OriginalName: originalName,
		SizeBytes:    size,
		Status:       docstore.StatusDuplicate,
		CanonicalID:  &canonical.ID,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "create record",
			"could not create duplicate record", err)
	}

	detail, _ := json.Marshal(map[string]any{
		"canonical_id":  canonical.ID,
		"original_name": originalName,
	})
	if err := i.docs.AppendAudit(ctx, docstore.AuditEvent{
		ResourceType: docstore.ResourceDocument,
		ResourceID:   doc.ID,
		EventType:    docstore.EventDuplicate,
		Actor:        docstore.ActorSystem,
		DetailJSON:   string(detail),
	}); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "audit",
			"could not record duplicate event", err)
	}
	return doc, nil
}
