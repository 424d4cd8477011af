// Package contenthash computes the SHA-256 content identity of a file.
// The hex digest is the deduplication key and the immutable name the
// ingested copy is stored under, so identical bytes always resolve to the
// same identity regardless of filename or timing.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
)

// hexPattern matches a lowercase SHA-256 hex digest.
var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 and returns the lowercase hex digest.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile returns the lowercase hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return HashReader(f)
}

// Valid reports whether value looks like a digest produced by this package.
func Valid(value string) bool {
	return hexPattern.MatchString(value)
}
