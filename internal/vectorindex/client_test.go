package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docsort/internal/config"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) Index {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.Vector{BaseURL: server.URL, Collection: "docsort_chunks"})
}

func TestEnsureCollectionSkipsExisting(t *testing.T) {
	var created bool
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/docsort_chunks":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			created = true
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	if err := index.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if created {
		t.Fatal("existing collection should not be recreated")
	}
}

func TestEnsureCollectionCreatesMissing(t *testing.T) {
	var createBody map[string]any
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&createBody); err != nil {
				t.Errorf("decode create body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	if err := index.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	vectors, ok := createBody["vectors"].(map[string]any)
	if !ok || vectors["size"].(float64) != 768 || vectors["distance"] != "Cosine" {
		t.Fatalf("unexpected create payload: %v", createBody)
	}
}

func TestUpsertSendsPoints(t *testing.T) {
	var upsertBody map[string]any
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/docsort_chunks/points" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Error("expected wait=true")
		}
		if err := json.NewDecoder(r.Body).Decode(&upsertBody); err != nil {
			t.Errorf("decode upsert body: %v", err)
		}
	})

	key := NewPointKey()
	err := index.Upsert(context.Background(), []Point{
		{Key: key, Vector: []float32{0.1, 0.2}, Payload: map[string]any{"document_id": 7}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points := upsertBody["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].(map[string]any)["id"] != key {
		t.Fatalf("point id mismatch: %v", points[0])
	}
}

func TestUpsertRejectsIncompletePoints(t *testing.T) {
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if err := index.Upsert(context.Background(), []Point{{Key: "k"}}); err == nil {
		t.Fatal("expected error for point without vector")
	}
}

func TestSearchDecodesHits(t *testing.T) {
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docsort_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "abc", "score": 0.92, "payload": map[string]any{"document_id": 3}},
			},
		})
	})

	hits, err := index.Search(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "abc" || hits[0].Score != 0.92 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestNoopIndex(t *testing.T) {
	index := NewClient(config.Vector{})
	if index.Name() != "noop" {
		t.Fatalf("name = %s", index.Name())
	}
	if err := index.Upsert(context.Background(), []Point{{Key: "k", Vector: []float32{1}}}); err != nil {
		t.Fatalf("noop upsert should succeed: %v", err)
	}
}
