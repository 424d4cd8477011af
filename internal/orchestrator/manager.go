package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/stage"
	"docsort/internal/storage"
)

// Manager runs the worker pool and the inbox scanner.
type Manager struct {
	cfg      *config.Config
	docs     *docstore.Store
	jobs     *jobqueue.Store
	layout   *storage.Layout
	handlers map[jobqueue.Type]stage.Handler
	ingester *Ingester
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires the orchestrator. handlers is the stage dispatch table
// from the pipeline package.
func NewManager(cfg *config.Config, docs *docstore.Store, jobs *jobqueue.Store, layout *storage.Layout, handlers map[jobqueue.Type]stage.Handler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		docs:     docs,
		jobs:     jobs,
		layout:   layout,
		handlers: handlers,
		ingester: NewIngester(cfg, docs, jobs, layout, logger),
		logger:   logger,
	}
}

// Ingester exposes the manager's ingester for direct (non-scanner) intake.
func (m *Manager) Ingester() *Ingester {
	return m.ingester
}

// Start launches the workers and the inbox scanner. It returns immediately;
// Stop waits for all loops to drain.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("orchestrator already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for n := 0; n < m.cfg.Workflow.Workers; n++ {
		workerID := fmt.Sprintf("worker-%d-%s", n, uuid.NewString()[:8])
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runWorker(runCtx, workerID)
		}()
	}

	scanInterval := time.Duration(m.cfg.Workflow.InboxScanInterval) * time.Second
	sc := newScanner(m.layout, m.ingester, scanInterval, m.logger)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sc.run(runCtx)
	}()

	m.logger.Info("orchestrator started",
		logging.Int("workers", m.cfg.Workflow.Workers),
		logging.Int("inbox_scan_interval_s", m.cfg.Workflow.InboxScanInterval),
	)
	return nil
}

// Stop cancels all loops and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("orchestrator stopped")
}

// Health reports the health of every registered stage handler.
func (m *Manager) Health(ctx context.Context) map[jobqueue.Type]stage.Health {
	out := make(map[jobqueue.Type]stage.Health, len(m.handlers))
	for jobType, handler := range m.handlers {
		out[jobType] = handler.HealthCheck(ctx)
	}
	return out
}
