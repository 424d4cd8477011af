package api

import (
	"context"
	"log/slog"

	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/orchestrator"
	"docsort/internal/storage"
)

// Service bundles the operator-facing actions over one pair of stores.
type Service struct {
	cfg      *config.Config
	docs     *docstore.Store
	jobs     *jobqueue.Store
	layout   *storage.Layout
	ingester *orchestrator.Ingester
	logger   *slog.Logger
}

// New constructs the service facade.
func New(cfg *config.Config, docs *docstore.Store, jobs *jobqueue.Store, layout *storage.Layout, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		docs:     docs,
		jobs:     jobs,
		layout:   layout,
		ingester: orchestrator.NewIngester(cfg, docs, jobs, layout, logger),
		logger:   logger,
	}
}

// Ingest takes one file into the pipeline immediately, bypassing the inbox
// scanner's stability wait.
func (s *Service) Ingest(ctx context.Context, path string) (*docstore.Document, error) {
	return s.ingester.Ingest(ctx, path)
}
