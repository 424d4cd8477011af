package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageRoot == "" {
		return errors.New("paths.storage_root must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.LeaseDuration < 5 {
		return errors.New("workflow.lease_duration must be at least 5 seconds")
	}
	if c.Workflow.Workers > 64 {
		return errors.New("workflow.workers must be 64 or fewer")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.ConfidenceThreshold < 0 || c.Classifier.ConfidenceThreshold > 1 {
		return errors.New("classifier.confidence_threshold must be between 0 and 1")
	}
	if c.Classifier.BaseURL != "" && c.Classifier.Model == "" {
		return errors.New("classifier.model must be set when classifier.base_url is configured")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.OverlapChars >= c.Chunking.TargetChars {
		return fmt.Errorf("chunking.overlap_chars (%d) must be smaller than chunking.target_chars (%d)",
			c.Chunking.OverlapChars, c.Chunking.TargetChars)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
