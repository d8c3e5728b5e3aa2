package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/datamover"
	"shuttle/internal/ledger"
	"shuttle/internal/logging"
	"shuttle/internal/transfer"
	"shuttle/internal/workspace"
)

// commandContext lazily constructs the pieces commands share. Everything is
// built at most once per invocation; the ledger is closed by main.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	ledgerOnce sync.Once
	store      *ledger.Store
	ledgerErr  error

	serviceOnce sync.Once
	service     *transfer.Service
	serviceErr  error

	workspaceOnce sync.Once
	workspace     *workspace.Manager
	workspaceErr  error
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ensureLedger() (*ledger.Store, error) {
	c.ledgerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.ledgerErr = err
			return
		}
		c.store, c.ledgerErr = ledger.Open(cfg.Paths.LedgerDir)
	})
	return c.store, c.ledgerErr
}

func (c *commandContext) workspaceManager() (*workspace.Manager, error) {
	c.workspaceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.workspaceErr = err
			return
		}
		c.workspace, c.workspaceErr = workspace.New(cfg.Workspace.BinDir, cfg.Workspace.Filesystem)
	})
	return c.workspace, c.workspaceErr
}

func (c *commandContext) ensureService() (*transfer.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		logger, err := c.ensureLogger()
		if err != nil {
			c.serviceErr = err
			return
		}
		store, err := c.ensureLedger()
		if err != nil {
			c.serviceErr = err
			return
		}

		dm, err := datamover.New(cfg.Datamover.BinDir, datamover.Timeouts{
			Transfer: time.Duration(cfg.Datamover.TransferTimeout) * time.Second,
			List:     time.Duration(cfg.Datamover.ListTimeout) * time.Second,
			Remove:   time.Duration(cfg.Datamover.RemoveTimeout) * time.Second,
		})
		if err != nil {
			c.serviceErr = err
			return
		}

		ws, err := c.workspaceManager()
		if err != nil {
			c.serviceErr = err
			return
		}

		c.service, c.serviceErr = transfer.New(transfer.Options{
			FileserverMount: cfg.Paths.FileserverMount,
			ProjectSpace:    cfg.Paths.ProjectSpace,
			Datamover:       dm,
			Workspace:       ws,
			Cache: workspace.CacheOptions{
				Dir:          cfg.Paths.CacheDir,
				Name:         cfg.Workspace.Name,
				DurationDays: cfg.Workspace.DurationDays,
				AutoAllocate: cfg.Workspace.AutoAllocate,
			},
			Ledger: store,
			Logger: logging.WithComponent(logger, "transfer"),
		})
	})
	return c.service, c.serviceErr
}

// Close releases resources opened during command execution.
func (c *commandContext) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
