package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/embedding"
	"docsort/internal/extraction"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/stage"
	"docsort/internal/storage"
	"docsort/internal/vectorindex"
)

// Deps bundles everything the stage handlers share.
type Deps struct {
	Cfg        *config.Config
	Docs       *docstore.Store
	Layout     *storage.Layout
	Extractor  extraction.Extractor
	Embedder   embedding.Embedder
	Index      vectorindex.Index
	Classifier classify.Classifier
	Logger     *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.NewNop()
}

// Handlers builds the job-type dispatch table.
func Handlers(deps Deps) map[jobqueue.Type]stage.Handler {
	return map[jobqueue.Type]stage.Handler{
		jobqueue.TypeExtract:  NewExtract(deps),
		jobqueue.TypeChunk:    NewChunk(deps),
		jobqueue.TypeEmbed:    NewEmbed(deps),
		jobqueue.TypeClassify: NewClassify(deps),
		jobqueue.TypeCommit:   NewCommit(deps),
	}
}

// ensureAnalyzing moves an ingested document into analyzing, tolerating
// re-runs that already made the move. Any other status means a concurrent
// actor changed the document out from under the pipeline.
func ensureAnalyzing(ctx context.Context, docs *docstore.Store, doc *docstore.Document, stageName string) (*docstore.Document, error) {
	switch doc.Status {
	case docstore.StatusAnalyzing:
		return doc, nil
	case docstore.StatusIngested:
		updated, err := docs.Transition(ctx, docstore.TransitionRequest{
			DocumentID: doc.ID,
			From:       docstore.StatusIngested,
			To:         docstore.StatusAnalyzing,
			Actor:      docstore.ActorPipeline,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConflict, stageName, "begin analysis",
				"document left ingested state concurrently", err)
		}
		return updated, nil
	default:
		return nil, services.Wrap(services.ErrValidation, stageName, "begin analysis",
			fmt.Sprintf("document is %s, not processable", doc.Status), nil)
	}
}
