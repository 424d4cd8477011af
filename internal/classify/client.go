package classify

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

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
	maxPromptChars     = 6000
)

// Classification is the structured verdict returned by the model.
type Classification struct {
	Category          string  `json:"category"`
	SuggestedFilename string  `json:"suggested_filename"`
	TargetPath        string  `json:"target_path"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason"`
	Raw               string  `json:"-"`
}

// Classifier produces a classification for a document's text.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, filename, text string) (Classification, error)
	Ping(ctx context.Context) error
}

// ErrDisabled indicates no classifier endpoint is configured.
var ErrDisabled = errors.New("classifier disabled")

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient constructs a classifier client from configuration. Returns the
// Disabled classifier when no base URL is configured.
func NewClient(cfg config.Classifier, opts ...Option) Classifier {
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
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the classifier in logs and health output.
func (c *Client) Name() string {
	return "chat-completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends the document to the model and decodes its verdict.
func (c *Client) Classify(ctx context.Context, filename, text string) (Classification, error) {
	var empty Classification
	text = strings.TrimSpace(text)
	if text == "" && strings.TrimSpace(filename) == "" {
		return empty, errors.New("classify: filename or text required")
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", filename, text)},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("classify: encode request: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return empty, fmt.Errorf("classify: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("classify: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("classify: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("classify: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("classify: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return empty, fmt.Errorf("classify: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return empty, errors.New("classify: response contained no choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return empty, errors.New("classify: empty model content")
	}

	var parsed Classification
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return empty, fmt.Errorf("classify: parse verdict: %w", err)
	}
	parsed.Raw = content
	parsed.Category = strings.ToLower(strings.TrimSpace(parsed.Category))
	parsed.SuggestedFilename = strings.TrimSpace(parsed.SuggestedFilename)
	parsed.TargetPath = strings.Trim(strings.TrimSpace(parsed.TargetPath), "/")
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	if parsed.Category == "" {
		return empty, errors.New("classify: verdict missing category")
	}
	return parsed, nil
}

// Ping checks reachability of the endpoint.
func (c *Client) Ping(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.baseURL, "/models")
	if err != nil {
		return fmt.Errorf("classify ping: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("classify ping: request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classify ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("classify ping: http %d", resp.StatusCode)
	}
	return nil
}

// stripCodeFence removes a markdown code fence if the model wrapped its JSON
// in one despite instructions.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// Disabled is the classifier used when no endpoint is configured. Every
// document it sees goes to manual review.
type Disabled struct{}

// Name identifies the disabled classifier.
func (Disabled) Name() string { return "disabled" }

// Classify always reports the classifier as disabled.
func (Disabled) Classify(context.Context, string, string) (Classification, error) {
	return Classification{}, ErrDisabled
}

// Ping always reports the classifier as disabled.
func (Disabled) Ping(context.Context) error { return ErrDisabled }
