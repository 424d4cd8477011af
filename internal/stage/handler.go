package stage

import (
	"context"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
)

// Handler describes the contract the worker pool needs from each pipeline
// stage. Execute mutates the document through the docstore and returns an
// error classified by the services package when the stage fails.
type Handler interface {
	Execute(context.Context, *jobqueue.Job, *docstore.Document) error
	HealthCheck(context.Context) Health
}
