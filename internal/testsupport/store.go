package testsupport

import (
	"testing"

	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/storage"
)

// MustOpenDocs opens a document store for tests and registers cleanup.
func MustOpenDocs(t testing.TB, cfg *config.Config) *docstore.Store {
	t.Helper()
	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustOpenJobs opens a job queue for tests and registers cleanup.
func MustOpenJobs(t testing.TB, cfg *config.Config) *jobqueue.Store {
	t.Helper()
	store, err := jobqueue.Open(cfg)
	if err != nil {
		t.Fatalf("jobqueue.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustLayout builds the storage layout for tests with all zones present.
func MustLayout(t testing.TB, cfg *config.Config) *storage.Layout {
	t.Helper()
	layout := storage.NewLayout(cfg)
	if err := layout.EnsureZones(); err != nil {
		t.Fatalf("EnsureZones: %v", err)
	}
	return layout
}
