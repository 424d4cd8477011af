package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/orchestrator"
	"docsort/internal/stage"
)

// Daemon runs the orchestrator and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	docs   *docstore.Store
	jobs   *jobqueue.Store
	mgr    *orchestrator.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is a point-in-time view of the daemon.
type Status struct {
	Running      bool
	Stages       map[jobqueue.Type]stage.Health
	LockFilePath string
	StorageRoot  string
}

// New constructs a daemon around an orchestrator manager.
func New(cfg *config.Config, docs *docstore.Store, jobs *jobqueue.Store, mgr *orchestrator.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || docs == nil || jobs == nil || mgr == nil {
		return nil, errors.New("daemon requires config, stores, and an orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "docsortd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		docs:     docs,
		jobs:     jobs,
		mgr:      mgr,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the orchestrator.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docsort daemon is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.mgr.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start orchestrator: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the orchestrator and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mgr.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("could not release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes both stores.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.docs.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.jobs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Status reports whether the daemon runs and how the stages are doing.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Stages:       d.mgr.Health(ctx),
		LockFilePath: d.lockPath,
		StorageRoot:  d.cfg.Paths.StorageRoot,
	}
}
