package logging

import (
	"context"
	"log/slog"

	"docsort/internal/services"
)

// WithContext enriches a logger with correlation fields stashed in the
// context by the orchestrator (document ID, job ID, stage, worker, request).
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if id, ok := services.DocumentIDFromContext(ctx); ok {
		logger = logger.With(Int64(FieldDocumentID, id))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		logger = logger.With(Int64(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	if worker, ok := services.WorkerIDFromContext(ctx); ok {
		logger = logger.With(String(FieldWorkerID, worker))
	}
	if request, ok := services.RequestIDFromContext(ctx); ok {
		logger = logger.With(String(FieldRequestID, request))
	}
	return logger
}
