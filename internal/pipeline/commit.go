package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/stage"
	"docsort/internal/storage"
	"docsort/internal/textutil"
)

// Commit moves an approved document's file to its final location in the
// sorted zone and closes out the lifecycle.
type Commit struct {
	deps Deps
}

// NewCommit constructs the commit stage handler.
func NewCommit(deps Deps) *Commit {
	return &Commit{deps: deps}
}

// Execute commits one approved document. The verified move is idempotent,
// so a retry after a crash between move and transition just converges.
func (c *Commit) Execute(ctx context.Context, job *jobqueue.Job, doc *docstore.Document) error {
	if doc.Status != docstore.StatusApproved {
		return services.Wrap(services.ErrValidation, "commit", "check status",
			"document is not approved", nil)
	}
	if doc.StoredPath == "" {
		return services.Wrap(services.ErrValidation, "commit", "locate file",
			"document has no stored file", nil)
	}

	relTarget := c.finalRelPath(doc)
	finalPath, err := c.deps.Layout.MoveToFinal(doc.StoredPath, relTarget, doc.ContentHash)
	if err != nil {
		if errors.Is(err, storage.ErrPathConflict) {
			return services.Wrap(services.ErrValidation, "commit", "place file",
				"target path is taken by a different file", err)
		}
		if errors.Is(err, storage.ErrPathEscape) {
			return services.Wrap(services.ErrValidation, "commit", "place file",
				"target path escapes the sorted zone", err)
		}
		return services.Wrap(services.ErrTransient, "commit", "place file",
			"could not move file to its final location", err)
	}

	doc.FinalPath = finalPath
	if err := c.deps.Docs.Update(ctx, doc); err != nil {
		return services.Wrap(services.ErrTransient, "commit", "persist final path",
			"could not record final location", err)
	}

	detail, _ := json.Marshal(map[string]string{"final_path": finalPath})
	doc, err = c.deps.Docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       docstore.StatusApproved,
		To:         docstore.StatusCommitted,
		Actor:      docstore.ActorPipeline,
		EventType:  docstore.EventCommitted,
		DetailJSON: string(detail),
	})
	if err != nil {
		return services.Wrap(services.ErrConflict, "commit", "finish commit",
			"document changed state during commit", err)
	}

	// Staged text is working state; drop it now that the document is filed.
	if doc.TextPath != "" {
		if err := c.deps.Layout.RemoveStaging(doc.TextPath); err != nil {
			logging.WithContext(ctx, c.deps.logger()).Warn("staging cleanup failed",
				logging.Int64(logging.FieldDocumentID, doc.ID),
				logging.Error(err),
			)
		}
	}

	logging.WithContext(ctx, c.deps.logger()).Info("document committed",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("final_path", finalPath),
	)
	return nil
}

// finalRelPath builds the destination path inside the sorted zone. User
// overrides from approval win over the classifier's suggestion.
func (c *Commit) finalRelPath(doc *docstore.Document) string {
	dir := doc.EffectiveTargetPath()
	if dir == "" {
		dir = doc.EffectiveCategory()
	}
	if dir == "" {
		dir = "unsorted"
	}
	name := doc.EffectiveFilename()
	if name == "" {
		name = textutil.SanitizeFileName(doc.OriginalName)
	}
	if name == "" {
		name = doc.ContentHash
	}
	return path.Join(dir, name)
}

// HealthCheck reports readiness of the commit stage.
func (c *Commit) HealthCheck(ctx context.Context) stage.Health {
	if c.deps.Layout == nil {
		return stage.Unhealthy("commit", "no storage layout configured")
	}
	return stage.Healthy("commit")
}
