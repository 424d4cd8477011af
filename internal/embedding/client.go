// Package embedding turns chunk text into vectors through an Ollama-style
// embeddings endpoint. When no endpoint is configured the pipeline skips
// embedding entirely; classification still works from rules and the model.
package embedding

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

	"docsort/internal/config"
)

const defaultHTTPTimeout = 60 * time.Second

// ErrDisabled indicates no embedding endpoint is configured.
var ErrDisabled = errors.New("embedding disabled")

// Embedder produces a vector for a piece of text.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
}

// Client wraps the Ollama embeddings API.
type Client struct {
	baseURL    string
	model      string
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

// NewClient constructs an embedder from configuration. Returns the Disabled
// embedder when no base URL is configured.
func NewClient(cfg config.Embedding, opts ...Option) Embedder {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return Disabled{}
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(base, "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the embedder in logs and health output.
func (c *Client) Name() string {
	return "ollama"
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embed: text required")
	}

	encoded, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embed: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("embed: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("embed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, errors.New("embed: response contained no embedding")
	}
	return decoded.Embedding, nil
}

// Ping checks reachability of the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("embed ping: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embed ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("embed ping: http %d", resp.StatusCode)
	}
	return nil
}

// Disabled is the embedder used when no endpoint is configured.
type Disabled struct{}

// Name identifies the disabled embedder.
func (Disabled) Name() string { return "disabled" }

// Embed always reports the embedder as disabled.
func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

// Ping always reports the embedder as disabled.
func (Disabled) Ping(context.Context) error { return ErrDisabled }
