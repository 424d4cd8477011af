package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeClassifier()
	c.normalizeEmbedding()
	c.normalizeVector()
	c.normalizeChunking()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StorageRoot, err = expandPath(c.Paths.StorageRoot); err != nil {
		return fmt.Errorf("paths.storage_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = Default().Paths.APIBind
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	defaults := Default().Workflow
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaults.PollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaults.ErrorRetryInterval
	}
	if c.Workflow.LeaseDuration <= 0 {
		c.Workflow.LeaseDuration = defaults.LeaseDuration
	}
	if c.Workflow.MaxRetries < 0 {
		c.Workflow.MaxRetries = defaults.MaxRetries
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaults.Workers
	}
	if c.Workflow.InboxScanInterval <= 0 {
		c.Workflow.InboxScanInterval = defaults.InboxScanInterval
	}
}

func (c *Config) normalizeClassifier() {
	if c.Classifier.APIKey == "" {
		if value, ok := os.LookupEnv("DOCSORT_CLASSIFIER_API_KEY"); ok {
			c.Classifier.APIKey = value
		}
	}
	c.Classifier.BaseURL = strings.TrimRight(strings.TrimSpace(c.Classifier.BaseURL), "/")
	c.Classifier.Model = strings.TrimSpace(c.Classifier.Model)
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = Default().Classifier.TimeoutSeconds
	}
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = Default().Embedding.TimeoutSeconds
	}
}

func (c *Config) normalizeVector() {
	c.Vector.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vector.BaseURL), "/")
	c.Vector.Collection = strings.TrimSpace(c.Vector.Collection)
	if c.Vector.Collection == "" {
		c.Vector.Collection = Default().Vector.Collection
	}
	if c.Vector.TimeoutSeconds <= 0 {
		c.Vector.TimeoutSeconds = Default().Vector.TimeoutSeconds
	}
}

func (c *Config) normalizeChunking() {
	defaults := Default().Chunking
	if c.Chunking.TargetChars <= 0 {
		c.Chunking.TargetChars = defaults.TargetChars
	}
	if c.Chunking.OverlapChars < 0 {
		c.Chunking.OverlapChars = defaults.OverlapChars
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
