package main

import (
	"log/slog"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/embedding"
	"docsort/internal/extraction"
	"docsort/internal/jobqueue"
	"docsort/internal/pipeline"
	"docsort/internal/stage"
	"docsort/internal/storage"
	"docsort/internal/vectorindex"
)

// buildHandlers assembles the capability clients from configuration and
// returns the stage dispatch table. Capabilities with no base URL come back
// as disabled implementations, so a bare config still yields a working
// rules-plus-review pipeline.
func buildHandlers(cfg *config.Config, docs *docstore.Store, layout *storage.Layout, logger *slog.Logger) map[jobqueue.Type]stage.Handler {
	return pipeline.Handlers(pipeline.Deps{
		Cfg:        cfg,
		Docs:       docs,
		Layout:     layout,
		Extractor:  extraction.NewText(),
		Embedder:   embedding.NewClient(cfg.Embedding),
		Index:      vectorindex.NewClient(cfg.Vector),
		Classifier: classify.NewClient(cfg.Classifier),
		Logger:     logger,
	})
}
