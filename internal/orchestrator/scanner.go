package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docsort/internal/logging"
	"docsort/internal/storage"
)

// scanner watches the inbox and hands stable files to the ingester. A file
// is stable once its size has not changed between two consecutive scans,
// which keeps half-copied files out of the pipeline.
type scanner struct {
	layout    *storage.Layout
	ingester  *Ingester
	interval  time.Duration
	logger    *slog.Logger
	prevSizes map[string]int64
}

func newScanner(layout *storage.Layout, ingester *Ingester, interval time.Duration, logger *slog.Logger) *scanner {
	return &scanner{
		layout:    layout,
		ingester:  ingester,
		interval:  interval,
		logger:    logger,
		prevSizes: make(map[string]int64),
	}
}

func (s *scanner) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// scanOnce ingests every stable inbox file and refreshes the size snapshot.
func (s *scanner) scanOnce(ctx context.Context) {
	inbox, err := s.layout.ZonePath(storage.ZoneInbox)
	if err != nil {
		s.logger.Warn("inbox scan failed", logging.Error(err))
		return
	}
	entries, err := os.ReadDir(inbox)
	if err != nil {
		s.logger.Warn("inbox scan failed", logging.Error(err))
		return
	}

	seen := make(map[string]int64, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(inbox, name)
		seen[path] = info.Size()

		prev, known := s.prevSizes[path]
		if !known || prev != info.Size() {
			continue
		}
		if _, err := s.ingester.Ingest(ctx, path); err != nil {
			s.logger.Error("ingest failed",
				logging.String("file", name),
				logging.Error(err),
			)
		}
		delete(seen, path)
	}
	s.prevSizes = seen
}
