package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/daemon"
	"docsort/internal/docstore"
	"docsort/internal/embedding"
	"docsort/internal/extraction"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/orchestrator"
	"docsort/internal/pipeline"
	"docsort/internal/storage"
	"docsort/internal/vectorindex"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageRoot = root
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}

	layout := storage.NewLayoutAt(root)
	if err := layout.EnsureZones(); err != nil {
		t.Fatalf("EnsureZones: %v", err)
	}
	docs, err := docstore.OpenPath(filepath.Join(root, "documents.db"))
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	jobs, err := jobqueue.OpenPath(filepath.Join(root, "jobs.db"), 3)
	if err != nil {
		t.Fatalf("open jobqueue: %v", err)
	}

	handlers := pipeline.Handlers(pipeline.Deps{
		Cfg:        &cfg,
		Docs:       docs,
		Layout:     layout,
		Extractor:  extraction.NewText(),
		Embedder:   embedding.NewClient(config.Embedding{}),
		Index:      vectorindex.Noop{},
		Classifier: classify.NewClient(config.Classifier{}),
		Logger:     logging.NewNop(),
	})
	mgr := orchestrator.NewManager(&cfg, docs, jobs, layout, handlers, logging.NewNop())

	d, err := daemon.New(&cfg, docs, jobs, mgr, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if len(status.Stages) != 5 {
		t.Fatalf("expected health for 5 stages, got %d", len(status.Stages))
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	first := newDaemon(t)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	status := first.Status(ctx)
	if status.LockFilePath == "" {
		t.Fatal("lock file path should be reported")
	}
	if _, err := os.Stat(status.LockFilePath); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
}
