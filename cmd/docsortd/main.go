package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"docsort/internal/config"
	"docsort/internal/daemon"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/orchestrator"
	"docsort/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	layout := storage.NewLayout(cfg)
	if err := layout.EnsureZones(); err != nil {
		log.Fatalf("prepare storage zones: %v", err)
	}

	docs, err := docstore.Open(cfg)
	if err != nil {
		log.Fatalf("open document store: %v", err)
	}
	jobs, err := jobqueue.Open(cfg)
	if err != nil {
		_ = docs.Close()
		log.Fatalf("open job queue: %v", err)
	}

	handlers := buildHandlers(cfg, docs, layout, logger)
	mgr := orchestrator.NewManager(cfg, docs, jobs, layout, handlers, logger)

	d, err := daemon.New(cfg, docs, jobs, mgr, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("docsortd shutting down")
}
