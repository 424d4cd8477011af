// Package services holds the shared error taxonomy and context annotations
// used across pipeline stages. Stage handlers wrap failures with a sentinel
// marker; the orchestrator classifies the marker to decide between manual
// review and the error state once retries are exhausted.
package services
