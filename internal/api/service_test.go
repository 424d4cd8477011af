package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docsort/internal/api"
	"docsort/internal/config"
	"docsort/internal/contenthash"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/services"
	"docsort/internal/storage"
)

type env struct {
	svc  *api.Service
	docs *docstore.Store
	jobs *jobqueue.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageRoot = root
	cfg.Paths.LogDir = filepath.Join(root, "logs")

	layout := storage.NewLayoutAt(root)
	if err := layout.EnsureZones(); err != nil {
		t.Fatalf("EnsureZones: %v", err)
	}
	docs, err := docstore.OpenPath(filepath.Join(root, "documents.db"))
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })
	jobs, err := jobqueue.OpenPath(filepath.Join(root, "jobs.db"), 3)
	if err != nil {
		t.Fatalf("open jobqueue: %v", err)
	}
	t.Cleanup(func() { _ = jobs.Close() })

	return &env{
		svc:  api.New(&cfg, docs, jobs, layout, logging.NewNop()),
		docs: docs,
		jobs: jobs,
	}
}

// seedAt creates a document and walks it to the requested status.
func (e *env) seedAt(t *testing.T, status docstore.Status) *docstore.Document {
	t.Helper()
	ctx := context.Background()
	content := []byte("seed content " + string(status))
	doc, err := e.docs.Create(ctx, docstore.NewDocumentParams{
		ContentHash:  contenthash.HashBytes(content),
		OriginalName: "seed.txt",
		MimeType:     "text/plain",
		SizeBytes:    int64(len(content)),
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	steps := map[docstore.Status][]docstore.Status{
		docstore.StatusIngested:    nil,
		docstore.StatusAnalyzing:   {docstore.StatusAnalyzing},
		docstore.StatusAnalyzed:    {docstore.StatusAnalyzing, docstore.StatusAnalyzed},
		docstore.StatusNeedsReview: {docstore.StatusAnalyzing, docstore.StatusNeedsReview},
		docstore.StatusError:       {docstore.StatusAnalyzing, docstore.StatusError},
	}[status]
	current := docstore.StatusIngested
	for _, next := range steps {
		doc, err = e.docs.Transition(ctx, docstore.TransitionRequest{
			DocumentID: doc.ID,
			From:       current,
			To:         next,
		})
		if err != nil {
			t.Fatalf("transition %s -> %s: %v", current, next, err)
		}
		current = next
	}
	return doc
}

func TestApproveQueuesCommit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.seedAt(t, docstore.StatusNeedsReview)
	doc.Category = "finance"
	if err := e.docs.Update(ctx, doc); err != nil {
		t.Fatalf("update: %v", err)
	}

	approved, err := e.svc.Approve(ctx, api.ApproveParams{
		DocumentID: doc.ID,
		ApprovedBy: "alex",
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != docstore.StatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
	if approved.ApprovedBy != "alex" || approved.ApprovedAt == nil {
		t.Fatalf("approval metadata missing: %+v", approved)
	}

	queued, err := e.jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(queued) != 1 || queued[0].Type != jobqueue.TypeCommit {
		t.Fatalf("expected one commit job, got %+v", queued)
	}
}

func TestApproveRecordsOverridesBesideSuggestions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.seedAt(t, docstore.StatusAnalyzed)
	doc.Category = "misc"
	doc.TargetPath = "misc"
	doc.SuggestedFilename = "doc.txt"
	if err := e.docs.Update(ctx, doc); err != nil {
		t.Fatalf("update: %v", err)
	}

	approved, err := e.svc.Approve(ctx, api.ApproveParams{
		DocumentID:        doc.ID,
		ApprovedBy:        "alex",
		Category:          "legal",
		TargetPath:        "/legal/contracts/",
		SuggestedFilename: "contract.txt",
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.UserCategory != "legal" || approved.UserTargetPath != "legal/contracts" {
		t.Fatalf("overrides not recorded: %+v", approved)
	}
	if approved.UserFilename != "contract.txt" {
		t.Fatalf("filename override not recorded: %q", approved.UserFilename)
	}
	// The classifier's suggestion stays on record for comparison.
	if approved.Category != "misc" || approved.TargetPath != "misc" || approved.SuggestedFilename != "doc.txt" {
		t.Fatalf("classifier suggestion overwritten: %+v", approved)
	}
	if approved.EffectiveCategory() != "legal" || approved.EffectiveTargetPath() != "legal/contracts" {
		t.Fatalf("effective values should prefer the override: %+v", approved)
	}
}

func TestApproveRejectsWrongStatus(t *testing.T) {
	e := newEnv(t)
	doc := e.seedAt(t, docstore.StatusIngested)
	_, err := e.svc.Approve(context.Background(), api.ApproveParams{DocumentID: doc.ID})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveRequiresCategory(t *testing.T) {
	e := newEnv(t)
	doc := e.seedAt(t, docstore.StatusNeedsReview)
	_, err := e.svc.Approve(context.Background(), api.ApproveParams{DocumentID: doc.ID})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing category, got %v", err)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.seedAt(t, docstore.StatusNeedsReview)

	rejected, err := e.svc.Reject(ctx, doc.ID, "alex", "not a real invoice")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != docstore.StatusError {
		t.Fatalf("status = %s, want error", rejected.Status)
	}
	if rejected.ErrorMessage != "not a real invoice" {
		t.Fatalf("error message = %q", rejected.ErrorMessage)
	}
}

func TestResetReturnsToIngestedAndRequeues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.seedAt(t, docstore.StatusError)

	reset, err := e.svc.Reset(ctx, doc.ID, "alex")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.Status != docstore.StatusIngested {
		t.Fatalf("status = %s, want ingested", reset.Status)
	}
	if reset.ErrorMessage != "" || reset.ReviewReason != "" {
		t.Fatalf("failure fields should be cleared: %+v", reset)
	}

	queued, err := e.jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(queued) != 1 || queued[0].Type != jobqueue.TypeExtract {
		t.Fatalf("expected a fresh extract job, got %+v", queued)
	}
}

func TestResetOnlyFromError(t *testing.T) {
	e := newEnv(t)
	doc := e.seedAt(t, docstore.StatusAnalyzed)
	_, err := e.svc.Reset(context.Background(), doc.ID, "alex")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRuleValidatesJSON(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.AddRule(ctx, docstore.NewRuleParams{
		Name:           "broken",
		ConditionsJSON: `{"filename_regex":"["}`,
		ActionsJSON:    `{"category":"x"}`,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad regex should be a validation error, got %v", err)
	}

	rule, err := e.svc.AddRule(ctx, docstore.NewRuleParams{
		Name:           "invoices",
		Priority:       5,
		Active:         true,
		ConditionsJSON: `{"filename_regex":"(?i)invoice"}`,
		ActionsJSON:    `{"category":"finance"}`,
	})
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if rule.ID == 0 || !rule.Active {
		t.Fatalf("unexpected rule: %+v", rule)
	}

	listed, err := e.svc.Rules(ctx)
	if err != nil || len(listed) != 1 {
		t.Fatalf("Rules: %v %d", err, len(listed))
	}
}

func TestCancelJobOnlyPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.seedAt(t, docstore.StatusIngested)

	job, err := e.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeExtract,
		DocumentID: doc.ID,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := e.svc.CancelJob(ctx, job.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if err := e.svc.CancelJob(ctx, job.ID); !errors.Is(err, jobqueue.ErrNotCancellable) {
		t.Fatalf("cancelling twice should fail, got %v", err)
	}
}

func TestIngestThroughService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "drop.txt")
	if err := os.WriteFile(src, []byte("direct ingest"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := e.svc.Ingest(ctx, src)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Status != docstore.StatusIngested {
		t.Fatalf("status = %s", doc.Status)
	}

	overview, err := e.svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.Documents[docstore.StatusIngested] != 1 {
		t.Fatalf("overview = %+v", overview)
	}
	if overview.Jobs[jobqueue.StatusPending] != 1 {
		t.Fatalf("overview jobs = %+v", overview)
	}
}
