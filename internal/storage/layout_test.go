package storage

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	"docsort/internal/contenthash"
)

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	l := NewLayoutAt(t.TempDir())
	if err := l.EnsureZones(); err != nil {
		t.Fatalf("EnsureZones: %v", err)
	}
	return l
}

func writeInbox(t *testing.T, l *Layout, name string, content []byte) string {
	t.Helper()
	p, err := l.SafeJoin(ZoneInbox, name)
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}
	return p
}

// writeIngested creates a file in the ingested zone and returns its
// root-relative path, the form stored on document records.
func writeIngested(t *testing.T, l *Layout, name string, content []byte) string {
	t.Helper()
	p, err := l.SafeJoin(ZoneIngested, name)
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write ingested file: %v", err)
	}
	return path.Join(ZoneIngested.Dir(), name)
}

func readRel(t *testing.T, l *Layout, rel string) []byte {
	t.Helper()
	abs, err := l.Abs(rel)
	if err != nil {
		t.Fatalf("Abs(%q): %v", rel, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read %q: %v", rel, err)
	}
	return data
}

func TestEnsureZonesCreatesAll(t *testing.T) {
	l := newTestLayout(t)
	for _, zone := range Zones() {
		dir, err := l.ZonePath(zone)
		if err != nil {
			t.Fatalf("ZonePath(%s): %v", zone, err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("zone %s missing: %v", zone, err)
		}
	}
}

func TestSafeJoinRejectsEscape(t *testing.T) {
	l := newTestLayout(t)
	for _, rel := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd", ""} {
		if _, err := l.SafeJoin(ZoneSorted, rel); !errors.Is(err, ErrPathEscape) {
			t.Fatalf("SafeJoin(%q): expected ErrPathEscape, got %v", rel, err)
		}
	}
	if _, err := l.SafeJoin(ZoneSorted, "finance/2024/report.pdf"); err != nil {
		t.Fatalf("nested path should be allowed: %v", err)
	}
}

func TestAbsRejectsEscape(t *testing.T) {
	l := newTestLayout(t)
	for _, rel := range []string{"../outside.txt", "/etc/passwd", ""} {
		if _, err := l.Abs(rel); !errors.Is(err, ErrPathEscape) {
			t.Fatalf("Abs(%q): expected ErrPathEscape, got %v", rel, err)
		}
	}
	abs, err := l.Abs("10_ingested/deadbeef.pdf")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Fatalf("expected absolute path, got %s", abs)
	}
}

func TestPlaceIngestedMovesAndVerifies(t *testing.T) {
	l := newTestLayout(t)
	content := []byte("hello world\n")
	src := writeInbox(t, l, "greeting.TXT", content)
	hash := contenthash.HashBytes(content)

	dst, err := l.PlaceIngested(src, hash)
	if err != nil {
		t.Fatalf("PlaceIngested: %v", err)
	}
	// Stored paths are root-relative so the tree can be relocated.
	if filepath.IsAbs(dst) {
		t.Fatalf("stored path should be root-relative, got %s", dst)
	}
	if path.Base(dst) != hash+".txt" {
		t.Fatalf("unexpected ingested name: %s", path.Base(dst))
	}
	if got := readRel(t, l, dst); string(got) != string(content) {
		t.Fatalf("ingested copy wrong: %q", got)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("inbox original should be removed, stat err = %v", err)
	}
}

func TestPlaceIngestedIdempotentForIdenticalContent(t *testing.T) {
	l := newTestLayout(t)
	content := []byte("same bytes")
	hash := contenthash.HashBytes(content)

	first := writeInbox(t, l, "a.pdf", content)
	if _, err := l.PlaceIngested(first, hash); err != nil {
		t.Fatalf("first PlaceIngested: %v", err)
	}

	second := writeInbox(t, l, "b.pdf", content)
	dst, err := l.PlaceIngested(second, hash)
	if err != nil {
		t.Fatalf("second PlaceIngested: %v", err)
	}
	if _, err := os.Stat(second); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("second inbox copy should be removed")
	}
	if got := readRel(t, l, dst); string(got) != string(content) {
		t.Fatalf("ingested copy should remain, got %q", got)
	}
}

func TestMoveToFinalConflictAndIdempotence(t *testing.T) {
	l := newTestLayout(t)
	content := []byte("v1")
	hash := contenthash.HashBytes(content)

	src := writeIngested(t, l, "doc.txt", content)
	dst, err := l.MoveToFinal(src, "finance/doc.txt", hash)
	if err != nil {
		t.Fatalf("MoveToFinal: %v", err)
	}
	if filepath.IsAbs(dst) {
		t.Fatalf("final path should be root-relative, got %s", dst)
	}
	if got := readRel(t, l, dst); string(got) != "v1" {
		t.Fatalf("unexpected final content: %q", got)
	}

	// Same content at the destination: treated as already moved, the
	// leftover source is absorbed.
	again := writeIngested(t, l, "doc-copy.txt", content)
	if _, err := l.MoveToFinal(again, "finance/doc.txt", hash); err != nil {
		t.Fatalf("idempotent MoveToFinal: %v", err)
	}

	// Different content wanted at the occupied destination: conflict,
	// source untouched.
	conflicting := writeIngested(t, l, "doc-v2.txt", []byte("v2"))
	_, err = l.MoveToFinal(conflicting, "finance/doc.txt", contenthash.HashBytes([]byte("v2")))
	if !errors.Is(err, ErrPathConflict) {
		t.Fatalf("expected ErrPathConflict, got %v", err)
	}
	conflictingAbs, _ := l.Abs(conflicting)
	if _, err := os.Stat(conflictingAbs); err != nil {
		t.Fatalf("conflicting source should remain: %v", err)
	}
}

func TestMoveToFinalConvergesAfterCrash(t *testing.T) {
	l := newTestLayout(t)
	content := []byte("tax report 2026")
	hash := contenthash.HashBytes(content)

	src := writeIngested(t, l, "report.txt", content)
	first, err := l.MoveToFinal(src, "finance/report.txt", hash)
	if err != nil {
		t.Fatalf("MoveToFinal: %v", err)
	}

	// A crash between the move and recording it leaves the source gone and
	// the destination in place. The retry must land on the same result
	// instead of failing on the missing source.
	second, err := l.MoveToFinal(src, "finance/report.txt", hash)
	if err != nil {
		t.Fatalf("retry after crash: %v", err)
	}
	if second != first {
		t.Fatalf("retry produced %s, want %s", second, first)
	}
	if got := readRel(t, l, second); string(got) != string(content) {
		t.Fatalf("final content changed: %q", got)
	}
}

func TestMoveToErrorsAvoidsOverwrite(t *testing.T) {
	l := newTestLayout(t)

	first := writeIngested(t, l, "bad-1.pdf", []byte("one"))
	p1, err := l.MoveToErrors(first, "bad.pdf")
	if err != nil {
		t.Fatalf("MoveToErrors: %v", err)
	}

	second := writeIngested(t, l, "bad-2.pdf", []byte("two"))
	p2, err := l.MoveToErrors(second, "bad.pdf")
	if err != nil {
		t.Fatalf("second MoveToErrors: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct error paths, both %s", p1)
	}
	if got := readRel(t, l, p1); string(got) != "one" {
		t.Fatalf("first error file clobbered: %q", got)
	}
}

func TestStagingRoundTrip(t *testing.T) {
	l := newTestLayout(t)

	staged, err := l.WriteStaging("abc123.txt", []byte("extracted text"))
	if err != nil {
		t.Fatalf("WriteStaging: %v", err)
	}
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("staging file missing: %v", err)
	}
	data, err := l.ReadStaging("abc123.txt")
	if err != nil || string(data) != "extracted text" {
		t.Fatalf("ReadStaging: %q %v", data, err)
	}
	if err := l.RemoveStaging("abc123.txt"); err != nil {
		t.Fatalf("RemoveStaging: %v", err)
	}
	if err := l.RemoveStaging("abc123.txt"); err != nil {
		t.Fatalf("RemoveStaging should ignore missing files: %v", err)
	}
}
