package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "docsort.toml")
	content := fmt.Sprintf("[paths]\nstorage_root = %q\nlog_dir = %q\n",
		filepath.Join(root, "storage"), filepath.Join(root, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCLI(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("docsort %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestIngestAndListRoundTrip(t *testing.T) {
	cfgPath := writeTestConfig(t)

	src := filepath.Join(t.TempDir(), "invoice.txt")
	if err := os.WriteFile(src, []byte("Total due: 42 EUR"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out := runCLI(t, cfgPath, "ingest", src)
	if !strings.Contains(out, "ingested as document 1") {
		t.Fatalf("unexpected ingest output: %q", out)
	}

	out = runCLI(t, cfgPath, "docs", "list")
	if !strings.Contains(out, "invoice.txt") || !strings.Contains(out, "ingested") {
		t.Fatalf("document missing from list: %q", out)
	}

	out = runCLI(t, cfgPath, "docs", "show", "1")
	if !strings.Contains(out, "Document 1 (ingested)") {
		t.Fatalf("unexpected show output: %q", out)
	}

	out = runCLI(t, cfgPath, "jobs", "list")
	if !strings.Contains(out, "extract") || !strings.Contains(out, "pending") {
		t.Fatalf("extract job missing: %q", out)
	}
}

func TestIngestReportsDuplicates(t *testing.T) {
	cfgPath := writeTestConfig(t)
	dir := t.TempDir()

	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte("same payload"), 0o644); err != nil {
			t.Fatalf("write source: %v", err)
		}
	}

	runCLI(t, cfgPath, "ingest", first)
	out := runCLI(t, cfgPath, "ingest", second)
	if !strings.Contains(out, "duplicate of document 1") {
		t.Fatalf("duplicate not reported: %q", out)
	}
}

func TestRulesLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCLI(t, cfgPath, "rules", "add",
		"--name", "invoices",
		"--priority", "10",
		"--conditions", `{"filename_regex":"(?i)invoice"}`,
		"--actions", `{"category":"finance","target_path":"finance/invoices"}`,
	)
	if !strings.Contains(out, "Rule 1 (invoices) created") {
		t.Fatalf("unexpected add output: %q", out)
	}

	out = runCLI(t, cfgPath, "rules", "list")
	if !strings.Contains(out, "invoices") || !strings.Contains(out, "yes") {
		t.Fatalf("rule missing from list: %q", out)
	}

	runCLI(t, cfgPath, "rules", "disable", "1")
	out = runCLI(t, cfgPath, "rules", "list")
	if !strings.Contains(out, "no") {
		t.Fatalf("rule should be disabled: %q", out)
	}

	runCLI(t, cfgPath, "rules", "delete", "1")
	out = runCLI(t, cfgPath, "rules", "list")
	if !strings.Contains(out, "No rules defined") {
		t.Fatalf("rule should be gone: %q", out)
	}
}

func TestRulesAddRejectsBadJSON(t *testing.T) {
	cfgPath := writeTestConfig(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "rules", "add",
		"--name", "broken",
		"--conditions", `{"filename_regex":"["}`,
		"--actions", `{"category":"x"}`,
	})
	if err := cmd.Execute(); err == nil {
		t.Fatal("invalid rule JSON should fail")
	}
}

func TestStatusShowsCounts(t *testing.T) {
	cfgPath := writeTestConfig(t)

	src := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	runCLI(t, cfgPath, "ingest", src)

	out := runCLI(t, cfgPath, "status")
	if !strings.Contains(out, "ingested") || !strings.Contains(out, "pending") {
		t.Fatalf("status missing counts: %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "storage_root") {
		t.Fatalf("sample config incomplete: %q", data)
	}
}
