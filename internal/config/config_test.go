package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsort/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if cfg.Workflow.LeaseDuration != 120 {
		t.Fatalf("unexpected default lease duration: %d", cfg.Workflow.LeaseDuration)
	}
	if cfg.Classifier.ConfidenceThreshold != 0.8 {
		t.Fatalf("unexpected default confidence threshold: %v", cfg.Classifier.ConfidenceThreshold)
	}
	if !filepath.IsAbs(cfg.Paths.StorageRoot) {
		t.Fatalf("storage root not expanded: %q", cfg.Paths.StorageRoot)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
storage_root = "` + filepath.Join(dir, "store") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
lease_duration = 30
workers = 4

[classifier]
base_url = "http://localhost:11434/v1/"
model = "test-model"
confidence_threshold = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%q", exists, resolved)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Workflow.Workers)
	}
	if strings.HasSuffix(cfg.Classifier.BaseURL, "/") {
		t.Fatalf("base URL not trimmed: %q", cfg.Classifier.BaseURL)
	}
	if cfg.Workflow.PollInterval != 2 {
		t.Fatalf("poll interval default not applied: %d", cfg.Workflow.PollInterval)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Classifier.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold > 1")
	}
}

func TestValidateRejectsOverlapLargerThanTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Chunking.TargetChars = 100
	cfg.Chunking.OverlapChars = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for overlap >= target")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}
}
