package testsupport

import (
	"path/filepath"
	"testing"

	"docsort/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a unique temp directory per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageRoot = base
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.PollInterval = 1
	cfg.Workflow.InboxScanInterval = 1
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.Workers = n
	}
}

// WithAutoApprove toggles auto-approval on the test config.
func WithAutoApprove(enabled bool) ConfigOption {
	return func(c *config.Config) {
		c.Classifier.AutoApprove = enabled
	}
}
