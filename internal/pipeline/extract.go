package pipeline

import (
	"context"
	"errors"
	"os"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/stage"
)

// Extract pulls plain text out of the stored file and parks it in the
// staging zone for the later stages.
type Extract struct {
	deps Deps
}

// NewExtract constructs the extract stage handler.
func NewExtract(deps Deps) *Extract {
	return &Extract{deps: deps}
}

// Execute runs text extraction for one document.
func (e *Extract) Execute(ctx context.Context, job *jobqueue.Job, doc *docstore.Document) error {
	doc, err := ensureAnalyzing(ctx, e.deps.Docs, doc, "extract")
	if err != nil {
		return err
	}

	if doc.StoredPath == "" {
		return services.Wrap(services.ErrValidation, "extract", "locate file",
			"document has no stored file", nil)
	}
	storedAbs, err := e.deps.Layout.Abs(doc.StoredPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "extract", "locate file",
			"stored path escapes the storage root", err)
	}
	if _, err := os.Stat(storedAbs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "extract", "locate file",
				"stored file is missing", err)
		}
		return services.Wrap(services.ErrTransient, "extract", "locate file",
			"stored file is unreadable", err)
	}

	result, err := e.deps.Extractor.Extract(ctx, storedAbs, doc.MimeType)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extract", "extract text",
			"text extraction failed", err)
	}

	textName := doc.ContentHash + ".txt"
	if _, err := e.deps.Layout.WriteStaging(textName, []byte(result.Text)); err != nil {
		return services.Wrap(services.ErrTransient, "extract", "stage text",
			"could not write extracted text", err)
	}

	doc.TextPath = textName
	doc.OCRNeeded = result.OCRNeeded
	doc.PageCount = result.PageCount
	if err := e.deps.Docs.Update(ctx, doc); err != nil {
		return services.Wrap(services.ErrTransient, "extract", "persist document",
			"could not record extraction result", err)
	}

	logger := logging.WithContext(ctx, e.deps.logger())
	logger.Info("text extracted",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.Int("chars", len(result.Text)),
		logging.Int("pages", result.PageCount),
		logging.Bool("ocr_needed", result.OCRNeeded),
	)
	return nil
}

// HealthCheck reports readiness of the extract stage.
func (e *Extract) HealthCheck(ctx context.Context) stage.Health {
	if e.deps.Extractor == nil {
		return stage.Unhealthy("extract", "no extractor configured")
	}
	return stage.Healthy("extract")
}
