package pipeline

import (
	"context"
	"errors"

	"docsort/internal/docstore"
	"docsort/internal/embedding"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/stage"
	"docsort/internal/vectorindex"
)

// Embed vectorizes the document's chunks and stores them in the vector
// index. Chunks that already carry a vector key are skipped, so the stage
// resumes cleanly after an interruption.
type Embed struct {
	deps Deps
}

// NewEmbed constructs the embed stage handler.
func NewEmbed(deps Deps) *Embed {
	return &Embed{deps: deps}
}

// Execute embeds all pending chunks for one document.
func (e *Embed) Execute(ctx context.Context, job *jobqueue.Job, doc *docstore.Document) error {
	if doc.Status != docstore.StatusAnalyzing {
		return services.Wrap(services.ErrValidation, "embed", "check status",
			"document is not under analysis", nil)
	}

	pending, err := e.deps.Docs.UnembeddedChunks(ctx, doc.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "embed", "load chunks",
			"could not list pending chunks", err)
	}
	logger := logging.WithContext(ctx, e.deps.logger())
	if len(pending) == 0 {
		logger.Info("no chunks to embed", logging.Int64(logging.FieldDocumentID, doc.ID))
		return nil
	}

	collectionReady := false
	embedded := 0
	for _, chunk := range pending {
		vector, err := e.deps.Embedder.Embed(ctx, chunk.Text)
		if errors.Is(err, embedding.ErrDisabled) {
			logger.Info("embedding disabled, skipping",
				logging.Int64(logging.FieldDocumentID, doc.ID))
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "embed", "embed chunk",
				"embedding request failed", err)
		}

		if !collectionReady {
			if err := e.deps.Index.EnsureCollection(ctx, len(vector)); err != nil {
				return services.Wrap(services.ErrExternalTool, "embed", "ensure collection",
					"vector index unavailable", err)
			}
			collectionReady = true
		}

		key := vectorindex.NewPointKey()
		err = e.deps.Index.Upsert(ctx, []vectorindex.Point{{
			Key:    key,
			Vector: vector,
			Payload: map[string]any{
				"document_id": doc.ID,
				"seq":         chunk.Seq,
			},
		}})
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "embed", "upsert vector",
				"vector index write failed", err)
		}
		if err := e.deps.Docs.SetChunkVector(ctx, chunk.ID, key); err != nil {
			return services.Wrap(services.ErrTransient, "embed", "record vector key",
				"could not mark chunk as embedded", err)
		}
		embedded++
	}

	logger.Info("chunks embedded",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.Int("embedded", embedded),
	)
	return nil
}

// HealthCheck reports readiness of the embed stage.
func (e *Embed) HealthCheck(ctx context.Context) stage.Health {
	if err := e.deps.Embedder.Ping(ctx); err != nil {
		if errors.Is(err, embedding.ErrDisabled) {
			return stage.Healthy("embed")
		}
		return stage.Unhealthy("embed", err.Error())
	}
	return stage.Healthy("embed")
}
