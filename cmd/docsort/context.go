package main

import (
	"fmt"
	"strings"
	"sync"

	"docsort/internal/api"
	"docsort/internal/config"
	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
	"docsort/internal/logging"
	"docsort/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withService opens the stores for one command invocation, runs fn, and
// closes everything again. Commands share the daemon's databases; SQLite's
// WAL mode and the busy timeout make that safe.
func (c *commandContext) withService(fn func(*api.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	layout := storage.NewLayout(cfg)
	if err := layout.EnsureZones(); err != nil {
		return fmt.Errorf("prepare storage zones: %w", err)
	}
	docs, err := docstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer docs.Close()
	jobs, err := jobqueue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job queue: %w", err)
	}
	defer jobs.Close()

	return fn(api.New(cfg, docs, jobs, layout, logging.NewNop()))
}
