// Package extraction turns stored document files into plain text for the
// chunking and classification stages. Files whose bytes do not decode as
// text are flagged for OCR instead of failing the pipeline.
package extraction

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Result is the outcome of text extraction. OCRNeeded marks documents whose
// content could not be decoded as text; they continue through the pipeline
// with whatever text was recovered and end up in review. PageCount is the
// number of pages recovered, zero when nothing was extracted.
type Result struct {
	Text      string
	OCRNeeded bool
	PageCount int
}

// Extractor produces plain text from a stored file.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, path, mimeType string) (Result, error)
}

// sniffLimit bounds how much of a file is read for binary detection and
// mime sniffing.
const sniffLimit = 8192

// DetectMimeType determines a file's mime type from its extension first and
// its leading bytes second.
func DetectMimeType(path string) (string, error) {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for sniffing: %w", err)
	}
	defer f.Close()

	buf := make([]byte, sniffLimit)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "application/octet-stream", nil
	}
	sniffed := http.DetectContentType(buf[:n])
	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mediaType, nil
	}
	return "application/octet-stream", nil
}

// Text extracts plain text from files whose bytes decode as UTF-8. Anything
// else is flagged as needing OCR.
type Text struct{}

// NewText returns the plain-text extractor.
func NewText() *Text {
	return &Text{}
}

// Name identifies the extractor in logs and health output.
func (t *Text) Name() string {
	return "text"
}

// Extract reads the file and returns its content when it decodes as text.
func (t *Text) Extract(ctx context.Context, path, mimeType string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read document: %w", err)
	}
	if looksBinary(data) {
		return Result{OCRNeeded: true}, nil
	}
	text := normalizeText(string(data))
	return Result{Text: text, PageCount: countPages(text)}, nil
}

// countPages counts form-feed separated pages. Plain text without page
// breaks is one page; empty text has none.
func countPages(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\f") + 1
}

// looksBinary reports whether the leading bytes resemble binary content.
// NUL bytes or invalid UTF-8 both disqualify a file from text extraction.
func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > sniffLimit {
		sample = sample[:sniffLimit]
	}
	if len(sample) == 0 {
		return false
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(sample)
}

// normalizeText standardizes line endings and trims trailing whitespace per
// line so chunk boundaries are stable across platforms.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
