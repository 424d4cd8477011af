package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docsort/internal/config"
	"docsort/internal/contenthash"
)

// Layout resolves zone directories under a single storage root and performs
// the verified moves between them.
type Layout struct {
	root string
}

// NewLayout builds a layout rooted at the configured storage root.
func NewLayout(cfg *config.Config) *Layout {
	return &Layout{root: cfg.Paths.StorageRoot}
}

// NewLayoutAt builds a layout rooted at an explicit directory.
func NewLayoutAt(root string) *Layout {
	return &Layout{root: root}
}

// Root returns the storage root directory.
func (l *Layout) Root() string {
	return l.root
}

// EnsureZones creates every zone directory under the root.
func (l *Layout) EnsureZones() error {
	for _, zone := range Zones() {
		dir := filepath.Join(l.root, zone.Dir())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create zone %s: %w", zone, err)
		}
	}
	return nil
}

// ZonePath returns the absolute directory for a zone.
func (l *Layout) ZonePath(zone Zone) (string, error) {
	dir := zone.Dir()
	if dir == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	return filepath.Join(l.root, dir), nil
}

// SafeJoin resolves rel inside the given zone and rejects any path that would
// escape it. Absolute paths and ".." traversal are both refused.
func (l *Layout) SafeJoin(zone Zone, rel string) (string, error) {
	base, err := l.ZonePath(zone)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathEscape, rel)
	}
	joined := filepath.Join(base, rel)
	relBack, err := filepath.Rel(base, joined)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	if relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	return joined, nil
}

// Abs resolves a root-relative path (the form stored on document records) to
// an absolute path, refusing anything that would escape the storage root.
func (l *Layout) Abs(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathEscape, rel)
	}
	joined := filepath.Join(l.root, filepath.FromSlash(rel))
	relBack, err := filepath.Rel(l.root, joined)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	if relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	return joined, nil
}

// rel converts an absolute path under the root back to the slash-separated
// root-relative form stored on document records.
func (l *Layout) rel(abs string) (string, error) {
	r, err := filepath.Rel(l.root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %q: %w", abs, err)
	}
	return filepath.ToSlash(r), nil
}

// IngestedName returns the content-addressed filename an ingested copy is
// stored under: the digest plus the original extension, if any.
func IngestedName(hash, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return hash + ext
}

// PlaceIngested copies src into the ingested zone under its content-addressed
// name, verifies the copy, then removes the original. A write to a temporary
// file followed by a rename keeps readers from ever seeing a partial copy.
// Re-placing an already present identical file succeeds and still removes src.
// Returns the root-relative path of the ingested copy.
func (l *Layout) PlaceIngested(src, hash string) (string, error) {
	dst, err := l.SafeJoin(ZoneIngested, IngestedName(hash, src))
	if err != nil {
		return "", err
	}
	stored, err := l.rel(dst)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(dst); statErr == nil {
		same, err := sameContent(src, dst)
		if err != nil {
			return "", fmt.Errorf("compare ingested copy: %w", err)
		}
		if !same {
			return "", fmt.Errorf("%w: %s", ErrPathConflict, dst)
		}
		if err := os.Remove(src); err != nil {
			return "", fmt.Errorf("remove inbox original: %w", err)
		}
		return stored, nil
	}

	tmp := dst + ".tmp"
	if err := copyFileVerified(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("copy to ingested zone: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize ingested copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove inbox original: %w", err)
	}
	return stored, nil
}

// WriteStaging writes data to a file in the staging zone, creating parent
// directories as needed.
func (l *Layout) WriteStaging(rel string, data []byte) (string, error) {
	dst, err := l.SafeJoin(ZoneStaging, rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write staging file: %w", err)
	}
	return dst, nil
}

// ReadStaging reads a file from the staging zone.
func (l *Layout) ReadStaging(rel string) ([]byte, error) {
	path, err := l.SafeJoin(ZoneStaging, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staging file: %w", err)
	}
	return data, nil
}

// RemoveStaging removes a staging file, ignoring files already gone.
func (l *Layout) RemoveStaging(rel string) error {
	path, err := l.SafeJoin(ZoneStaging, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}

// MoveToFinal moves a root-relative src to its committed location under the
// sorted zone and returns the root-relative result. Parent directories are
// created as needed. When the destination already exists its content is
// checked against contentHash: a match means the move already happened (a
// retry after a crash between move and record lands here, with src gone) and
// any leftover src is cleaned up; a mismatch is a conflict.
func (l *Layout) MoveToFinal(src, relTarget, contentHash string) (string, error) {
	srcAbs, err := l.Abs(src)
	if err != nil {
		return "", err
	}
	dst, err := l.SafeJoin(ZoneSorted, relTarget)
	if err != nil {
		return "", err
	}
	final, err := l.rel(dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create sorted directory: %w", err)
	}

	if _, statErr := os.Stat(dst); statErr == nil {
		if contentHash != "" {
			dstHash, err := contenthash.HashFile(dst)
			if err != nil {
				return "", fmt.Errorf("verify final copy: %w", err)
			}
			if dstHash != contentHash {
				return "", fmt.Errorf("%w: %s", ErrPathConflict, dst)
			}
		} else {
			same, err := sameContent(srcAbs, dst)
			if err != nil {
				return "", fmt.Errorf("compare final copy: %w", err)
			}
			if !same {
				return "", fmt.Errorf("%w: %s", ErrPathConflict, dst)
			}
		}
		if _, statErr := os.Stat(srcAbs); statErr == nil {
			if err := os.Remove(srcAbs); err != nil {
				return "", fmt.Errorf("remove moved source: %w", err)
			}
		}
		return final, nil
	}

	if err := moveFile(srcAbs, dst); err != nil {
		return "", err
	}
	return final, nil
}

// MoveToErrors moves a root-relative src into the errors zone under the given
// name, suffixing the name when it is already taken so nothing is overwritten.
// Returns the root-relative parked path.
func (l *Layout) MoveToErrors(src, name string) (string, error) {
	srcAbs, err := l.Abs(src)
	if err != nil {
		return "", err
	}
	dst, err := l.SafeJoin(ZoneErrors, name)
	if err != nil {
		return "", err
	}
	for n := 1; ; n++ {
		if _, statErr := os.Stat(dst); errors.Is(statErr, os.ErrNotExist) {
			break
		}
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		candidate := fmt.Sprintf("%s.%d%s", stem, n, ext)
		dst, err = l.SafeJoin(ZoneErrors, candidate)
		if err != nil {
			return "", err
		}
	}
	if err := moveFile(srcAbs, dst); err != nil {
		return "", err
	}
	return l.rel(dst)
}

// moveFile renames src to dst, falling back to verified copy plus remove when
// rename fails across filesystem boundaries.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}
