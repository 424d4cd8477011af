// Package vectorindex stores chunk embeddings in a Qdrant-style vector
// database over its REST API. Point keys are UUIDs recorded back on the
// chunk so the embed stage can resume without re-upserting finished chunks.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsort/internal/config"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrDisabled indicates no vector index endpoint is configured.
var ErrDisabled = errors.New("vector index disabled")

// Point is one embedded chunk destined for the index.
type Point struct {
	Key     string
	Vector  []float32
	Payload map[string]any
}

// Hit is one search result.
type Hit struct {
	Key     string
	Score   float64
	Payload map[string]any
}

// Index stores and searches chunk vectors.
type Index interface {
	Name() string
	EnsureCollection(ctx context.Context, vectorSize int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)
	Ping(ctx context.Context) error
}

// NewPointKey returns a fresh point identifier.
func NewPointKey() string {
	return uuid.NewString()
}

// Client wraps the Qdrant REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a vector index client from configuration. Returns the
// Noop index when no base URL is configured.
func NewClient(cfg config.Vector, opts ...Option) Index {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Noop{}
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(base, "/"),
		collection: strings.TrimSpace(cfg.Collection),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the index in logs and health output.
func (c *Client) Name() string {
	return "qdrant"
}

// EnsureCollection creates the collection when it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	if vectorSize <= 0 {
		return errors.New("vector index: vector size must be positive")
	}

	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	payload := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, payload)
	if err != nil {
		return err
	}
	if status >= http.StatusMultipleChoices {
		return fmt.Errorf("vector index: create collection: http %d: %s", status, body)
	}
	return nil
}

// Upsert writes points into the collection, waiting for durability.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	encoded := make([]map[string]any, 0, len(points))
	for _, point := range points {
		if point.Key == "" || len(point.Vector) == 0 {
			return errors.New("vector index: point key and vector required")
		}
		encoded = append(encoded, map[string]any{
			"id":      point.Key,
			"vector":  point.Vector,
			"payload": point.Payload,
		})
	}

	status, body, err := c.doQuery(ctx, http.MethodPut,
		"/collections/"+c.collection+"/points",
		"wait=true",
		map[string]any{"points": encoded},
	)
	if err != nil {
		return err
	}
	if status >= http.StatusMultipleChoices {
		return fmt.Errorf("vector index: upsert: http %d: %s", status, body)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns the closest points to the query vector.
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, errors.New("vector index: query vector required")
	}
	if limit <= 0 {
		limit = 10
	}

	status, body, err := c.do(ctx, http.MethodPost,
		"/collections/"+c.collection+"/points/search",
		map[string]any{
			"vector":       vector,
			"limit":        limit,
			"with_payload": true,
		},
	)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("vector index: search: http %d: %s", status, body)
	}

	var decoded searchResponse
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("vector index: decode search response: %w", err)
	}
	hits := make([]Hit, 0, len(decoded.Result))
	for _, result := range decoded.Result {
		hits = append(hits, Hit{
			Key:     fmt.Sprintf("%v", result.ID),
			Score:   result.Score,
			Payload: result.Payload,
		})
	}
	return hits, nil
}

// Ping checks reachability of the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return err
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("vector index ping: http %d", status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, string, error) {
	return c.doQuery(ctx, method, path, "", payload)
}

func (c *Client) doQuery(ctx context.Context, method, path, query string, payload any) (int, string, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return 0, "", fmt.Errorf("vector index: build url: %w", err)
	}
	if query != "" {
		endpoint += "?" + query
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, "", fmt.Errorf("vector index: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, "", fmt.Errorf("vector index: request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("vector index: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("vector index: read body: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}

// Noop is the index used when no endpoint is configured. Upserts succeed
// without storing anything so the pipeline can run without a vector store.
type Noop struct{}

// Name identifies the noop index.
func (Noop) Name() string { return "noop" }

// EnsureCollection does nothing.
func (Noop) EnsureCollection(context.Context, int) error { return nil }

// Upsert does nothing.
func (Noop) Upsert(context.Context, []Point) error { return nil }

// Search always reports the index as disabled.
func (Noop) Search(context.Context, []float32, int) ([]Hit, error) {
	return nil, ErrDisabled
}

// Ping always succeeds.
func (Noop) Ping(context.Context) error { return nil }
