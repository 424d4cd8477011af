package contenthash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashBytesMatchesKnownVector(t *testing.T) {
	// sha256("") is the canonical empty digest.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != want {
		t.Fatalf("HashBytes(nil) = %s, want %s", got, want)
	}
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	content := []byte("quarterly report\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if fromFile != HashBytes(content) {
		t.Fatalf("file digest %s does not match byte digest %s", fromFile, HashBytes(content))
	}
	if !Valid(fromFile) {
		t.Fatalf("digest %s failed validation", fromFile)
	}
}

func TestHashReaderStreams(t *testing.T) {
	digest, err := HashReader(strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if digest != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected digest for abc: %s", digest)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValid(t *testing.T) {
	if Valid("not-a-digest") {
		t.Fatal("expected invalid")
	}
	if Valid(strings.ToUpper(HashBytes([]byte("x")))) {
		t.Fatal("uppercase digests are not canonical")
	}
}
