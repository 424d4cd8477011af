package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/pipeline"
	"docsort/internal/services"
	"docsort/internal/stage"
	"docsort/internal/storage"
	"docsort/internal/vectorindex"

	"docsort/internal/classify"
	"docsort/internal/embedding"
	"docsort/internal/extraction"
)

type fixture struct {
	cfg    *config.Config
	docs   *docstore.Store
	jobs   *jobqueue.Store
	layout *storage.Layout
}

func newFixture(t *testing.T, maxRetries int) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageRoot = root
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Workflow.MaxRetries = maxRetries
	cfg.Workflow.PollInterval = 1
	cfg.Workflow.InboxScanInterval = 1
	cfg.Workflow.LeaseDuration = 30

	layout := storage.NewLayoutAt(root)
	if err := layout.EnsureZones(); err != nil {
		t.Fatalf("EnsureZones: %v", err)
	}
	docs, err := docstore.OpenPath(filepath.Join(root, "documents.db"))
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })
	jobs, err := jobqueue.OpenPath(filepath.Join(root, "jobs.db"), maxRetries)
	if err != nil {
		t.Fatalf("open jobqueue: %v", err)
	}
	t.Cleanup(func() { _ = jobs.Close() })

	return &fixture{cfg: &cfg, docs: docs, jobs: jobs, layout: layout}
}

func (f *fixture) pipelineHandlers() map[jobqueue.Type]stage.Handler {
	return pipeline.Handlers(pipeline.Deps{
		Cfg:        f.cfg,
		Docs:       f.docs,
		Layout:     f.layout,
		Extractor:  extraction.NewText(),
		Embedder:   embedding.NewClient(config.Embedding{}),
		Index:      vectorindex.Noop{},
		Classifier: classify.NewClient(config.Classifier{}),
		Logger:     logging.NewNop(),
	})
}

func (f *fixture) manager(handlers map[jobqueue.Type]stage.Handler) *Manager {
	return NewManager(f.cfg, f.docs, f.jobs, f.layout, handlers, logging.NewNop())
}

func (f *fixture) inboxFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	inbox, err := f.layout.ZonePath(storage.ZoneInbox)
	if err != nil {
		t.Fatalf("ZonePath: %v", err)
	}
	path := filepath.Join(inbox, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}
	return path
}

// stubHandler lets failure paths be exercised without a real stage.
type stubHandler struct {
	err error
}

func (h stubHandler) Execute(context.Context, *jobqueue.Job, *docstore.Document) error {
	return h.err
}

func (h stubHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("stub")
}

func TestIngestQueuesExtract(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	src := f.inboxFile(t, "report.txt", []byte("quarterly numbers"))

	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	doc, err := ing.Ingest(ctx, src)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Status != docstore.StatusIngested {
		t.Fatalf("status = %s, want ingested", doc.Status)
	}
	if doc.Title == "" || doc.MimeType == "" {
		t.Fatalf("metadata not filled in: %+v", doc)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("inbox file should be gone after ingest")
	}
	if filepath.IsAbs(doc.StoredPath) {
		t.Fatalf("stored path should be root-relative, got %s", doc.StoredPath)
	}
	storedAbs, err := f.layout.Abs(doc.StoredPath)
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if data, err := os.ReadFile(storedAbs); err != nil || string(data) != "quarterly numbers" {
		t.Fatalf("stored file wrong: %q %v", data, err)
	}

	queued, err := f.jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(queued) != 1 || queued[0].Type != jobqueue.TypeExtract {
		t.Fatalf("expected one extract job, got %+v", queued)
	}
}

func TestIngestDuplicateSkipsPipeline(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())

	first, err := ing.Ingest(ctx, f.inboxFile(t, "original.txt", []byte("same bytes")))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	copyPath := f.inboxFile(t, "copy.txt", []byte("same bytes"))
	dup, err := ing.Ingest(ctx, copyPath)
	if err != nil {
		t.Fatalf("duplicate ingest: %v", err)
	}
	if dup.Status != docstore.StatusDuplicate {
		t.Fatalf("status = %s, want duplicate", dup.Status)
	}
	if dup.CanonicalID == nil || *dup.CanonicalID != first.ID {
		t.Fatalf("canonical id = %v, want %d", dup.CanonicalID, first.ID)
	}
	if _, err := os.Stat(copyPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("duplicate inbox copy should be removed")
	}

	queued, err := f.jobs.ListByDocument(ctx, dup.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(queued) != 0 {
		t.Fatalf("duplicates get no jobs, got %d", len(queued))
	}

	events, err := f.docs.AuditByResource(ctx, docstore.ResourceDocument, dup.ID)
	if err != nil {
		t.Fatalf("AuditByResource: %v", err)
	}
	if len(events) != 1 || events[0].EventType != docstore.EventDuplicate {
		t.Fatalf("expected one duplicate event, got %+v", events)
	}
}

func TestScannerWaitsForStableSize(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	sc := newScanner(f.layout, ing, time.Second, logging.NewNop())

	path := f.inboxFile(t, "growing.txt", []byte("partial"))

	// First sight only records the size.
	sc.scanOnce(ctx)
	if _, err := os.Stat(path); err != nil {
		t.Fatal("file should not be ingested on first sight")
	}

	// The file grew between scans, so it is still unstable.
	if err := os.WriteFile(path, []byte("partial plus more"), 0o644); err != nil {
		t.Fatalf("grow file: %v", err)
	}
	sc.scanOnce(ctx)
	if _, err := os.Stat(path); err != nil {
		t.Fatal("file should not be ingested while still growing")
	}

	// Unchanged since the last scan, so now it goes in.
	sc.scanOnce(ctx)
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("stable file should have been ingested")
	}

	docs, err := f.docs.List(ctx, docstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
}

func TestScannerSkipsHiddenFiles(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	sc := newScanner(f.layout, ing, time.Second, logging.NewNop())

	hidden := f.inboxFile(t, ".partial.swp", []byte("editor leavings"))
	sc.scanOnce(ctx)
	sc.scanOnce(ctx)
	if _, err := os.Stat(hidden); err != nil {
		t.Fatal("hidden files should never be ingested")
	}
}

func TestProcessJobCompletesAndChains(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	m := f.manager(f.pipelineHandlers())

	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	doc, err := ing.Ingest(ctx, f.inboxFile(t, "memo.txt", []byte("please review\n\nthe attached memo")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	job, err := f.jobs.Lease(ctx, "worker-test", 30*time.Second)
	if err != nil || job == nil {
		t.Fatalf("lease: %v %v", job, err)
	}
	m.processJob(ctx, "worker-test", job)

	done, err := f.jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if done.Status != jobqueue.StatusCompleted {
		t.Fatalf("job status = %s, want completed", done.Status)
	}

	queued, err := f.jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	var chained *jobqueue.Job
	for _, j := range queued {
		if j.Type == jobqueue.TypeChunk {
			chained = j
		}
	}
	if chained == nil || chained.Status != jobqueue.StatusPending {
		t.Fatalf("chunk job should be pending, got %+v", queued)
	}

	reloaded, err := f.docs.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != docstore.StatusAnalyzing {
		t.Fatalf("document status = %s, want analyzing", reloaded.Status)
	}
}

func TestProcessJobRetriesThenRoutesToError(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	handlers := map[jobqueue.Type]stage.Handler{
		jobqueue.TypeExtract: stubHandler{err: errors.New("disk on fire")},
	}
	m := f.manager(handlers)

	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	doc, err := ing.Ingest(ctx, f.inboxFile(t, "cursed.txt", []byte("unprocessable")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// First attempt goes back to pending, second one exhausts the budget.
	for attempt := 0; attempt < 2; attempt++ {
		job, err := f.jobs.Lease(ctx, "worker-test", 30*time.Second)
		if err != nil || job == nil {
			t.Fatalf("lease attempt %d: %v %v", attempt, job, err)
		}
		m.processJob(ctx, "worker-test", job)
	}

	jobs, err := f.jobs.ListByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != jobqueue.StatusFailed {
		t.Fatalf("job should be terminally failed, got %+v", jobs)
	}

	reloaded, err := f.docs.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != docstore.StatusError {
		t.Fatalf("document status = %s, want error", reloaded.Status)
	}
	// The error message set by the terminal transition survives the update
	// that records the parked location.
	if !strings.Contains(reloaded.ErrorMessage, "disk on fire") {
		t.Fatalf("error message not recorded: %q", reloaded.ErrorMessage)
	}
	if !strings.HasPrefix(reloaded.StoredPath, storage.ZoneErrors.Dir()+"/") {
		t.Fatalf("file should be parked in the errors zone, got %s", reloaded.StoredPath)
	}
	parkedAbs, err := f.layout.Abs(reloaded.StoredPath)
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if _, err := os.Stat(parkedAbs); err != nil {
		t.Fatalf("parked file missing: %v", err)
	}

	// Both attempts left a failure event on the audit trail, plus the
	// terminal transition itself.
	events, err := f.docs.AuditByResource(ctx, docstore.ResourceDocument, doc.ID)
	if err != nil {
		t.Fatalf("AuditByResource: %v", err)
	}
	var stageFailures, terminal int
	for _, event := range events {
		switch event.EventType {
		case docstore.EventStageFailed:
			stageFailures++
		case docstore.EventFailed:
			terminal++
		}
	}
	if stageFailures != 2 {
		t.Fatalf("expected 2 stage failure events, got %d (%+v)", stageFailures, events)
	}
	if terminal != 1 {
		t.Fatalf("expected 1 terminal failure event, got %d", terminal)
	}
}

func TestProcessJobValidationFailureRoutesToReview(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	handlers := map[jobqueue.Type]stage.Handler{
		jobqueue.TypeClassify: stubHandler{
			err: services.Wrap(services.ErrValidation, "classify", "parse rule",
				"rule conditions are malformed", nil),
		},
	}
	m := f.manager(handlers)

	ing := NewIngester(f.cfg, f.docs, f.jobs, f.layout, logging.NewNop())
	doc, err := ing.Ingest(ctx, f.inboxFile(t, "odd.txt", []byte("some text")))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, err := f.docs.Transition(ctx, docstore.TransitionRequest{
		DocumentID: doc.ID,
		From:       docstore.StatusIngested,
		To:         docstore.StatusAnalyzing,
		Actor:      docstore.ActorPipeline,
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := f.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:       jobqueue.TypeClassify,
		DocumentID: doc.ID,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		job, err := f.jobs.Lease(ctx, "worker-test", 30*time.Second)
		if err != nil || job == nil {
			t.Fatalf("lease attempt %d: %v %v", attempt, job, err)
		}
		if job.Type != jobqueue.TypeClassify {
			// The extract job from ingest has no handler here; fail it out
			// of the way.
			if _, err := f.jobs.Fail(ctx, job.ID, "worker-test", "skipped"); err != nil {
				t.Fatalf("fail extract: %v", err)
			}
			attempt--
			continue
		}
		m.processJob(ctx, "worker-test", job)
	}

	reloaded, err := f.docs.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != docstore.StatusNeedsReview {
		t.Fatalf("document status = %s, want needs_review", reloaded.Status)
	}
	if !strings.Contains(reloaded.ReviewReason, "malformed") {
		t.Fatalf("review reason not recorded: %q", reloaded.ReviewReason)
	}
}

func TestManagerRunsPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("timer-driven end-to-end run")
	}
	f := newFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := f.docs.CreateRule(ctx, docstore.NewRuleParams{
		Name:           "plain text",
		Priority:       10,
		Active:         true,
		ConditionsJSON: `{"mime_type":"text/plain"}`,
		ActionsJSON:    `{"category":"notes","target_path":"notes"}`,
	}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	m := f.manager(f.pipelineHandlers())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	f.inboxFile(t, "diary.txt", []byte("today was a good day"))

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		docs, err := f.docs.List(ctx, docstore.ListFilter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(docs) == 1 && docs[0].Status == docstore.StatusCommitted {
			if docs[0].FinalPath == "" {
				t.Fatal("committed document should have a final path")
			}
			finalAbs, err := f.layout.Abs(docs[0].FinalPath)
			if err != nil {
				t.Fatalf("Abs: %v", err)
			}
			if _, err := os.Stat(finalAbs); err != nil {
				t.Fatalf("final file missing: %v", err)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("document never reached committed")
}

func TestManagerHealthReportsAllStages(t *testing.T) {
	f := newFixture(t, 3)
	m := f.manager(f.pipelineHandlers())
	health := m.Health(context.Background())
	if len(health) != 5 {
		t.Fatalf("expected health for 5 stages, got %d", len(health))
	}
}
