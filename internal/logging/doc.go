// Package logging builds the slog loggers used across docsort and provides
// attribute helpers plus context-aware correlation enrichment.
package logging
