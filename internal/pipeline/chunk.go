package pipeline

import (
	"context"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/stage"
)

// Chunk splits the staged text into overlapping pieces and swaps them into
// the docstore.
type Chunk struct {
	deps Deps
}

// NewChunk constructs the chunk stage handler.
func NewChunk(deps Deps) *Chunk {
	return &Chunk{deps: deps}
}

// Execute runs chunking for one document. A document with no extracted text
// simply ends up with zero chunks.
func (c *Chunk) Execute(ctx context.Context, job *jobqueue.Job, doc *docstore.Document) error {
	if doc.Status != docstore.StatusAnalyzing {
		return services.Wrap(services.ErrValidation, "chunk", "check status",
			"document is not under analysis", nil)
	}

	var text string
	if doc.TextPath != "" {
		data, err := c.deps.Layout.ReadStaging(doc.TextPath)
		if err != nil {
			return services.Wrap(services.ErrNotFound, "chunk", "read staged text",
				"extracted text is missing; rerun extraction", err)
		}
		text = string(data)
	}

	pieces := SplitText(text, c.deps.Cfg.Chunking.TargetChars, c.deps.Cfg.Chunking.OverlapChars)
	chunks := make([]docstore.NewChunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, docstore.NewChunk{
			Seq:           piece.Seq,
			Text:          piece.Text,
			TokenEstimate: piece.TokenEstimate,
		})
	}
	if err := c.deps.Docs.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return services.Wrap(services.ErrTransient, "chunk", "persist chunks",
			"could not store chunk set", err)
	}

	logger := logging.WithContext(ctx, c.deps.logger())
	logger.Info("document chunked",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.Int("chunks", len(chunks)),
	)
	return nil
}

// HealthCheck reports readiness of the chunk stage.
func (c *Chunk) HealthCheck(ctx context.Context) stage.Health {
	if c.deps.Cfg.Chunking.OverlapChars >= c.deps.Cfg.Chunking.TargetChars {
		return stage.Unhealthy("chunk", "overlap must be smaller than target size")
	}
	return stage.Healthy("chunk")
}
