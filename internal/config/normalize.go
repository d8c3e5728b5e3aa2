package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatamover(); err != nil {
		return err
	}
	c.normalizeWorkspace()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.FileserverMount == "" {
		if value, ok := os.LookupEnv("SHUTTLE_FILESERVER_MOUNT"); ok {
			c.Paths.FileserverMount = strings.TrimSpace(value)
		}
	}
	if c.Paths.ProjectSpace == "" {
		if value, ok := os.LookupEnv("SHUTTLE_PROJECT_SPACE"); ok {
			c.Paths.ProjectSpace = strings.TrimSpace(value)
		}
	}
	if c.Paths.FileserverMount != "" {
		if c.Paths.FileserverMount, err = expandPath(c.Paths.FileserverMount); err != nil {
			return fmt.Errorf("paths.fileserver_mount: %w", err)
		}
	}
	if c.Paths.ProjectSpace != "" {
		if c.Paths.ProjectSpace, err = expandPath(c.Paths.ProjectSpace); err != nil {
			return fmt.Errorf("paths.project_space: %w", err)
		}
	}
	if c.Paths.CacheDir != "" {
		if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
			return fmt.Errorf("paths.cache_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerDir) == "" {
		c.Paths.LedgerDir = defaultLedgerDir
	}
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return fmt.Errorf("paths.ledger_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatamover() error {
	var err error
	c.Datamover.BinDir = strings.TrimSpace(c.Datamover.BinDir)
	if c.Datamover.BinDir != "" {
		if c.Datamover.BinDir, err = expandPath(c.Datamover.BinDir); err != nil {
			return fmt.Errorf("datamover.bin_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeWorkspace() {
	c.Workspace.BinDir = strings.TrimSpace(c.Workspace.BinDir)
	c.Workspace.Name = strings.TrimSpace(c.Workspace.Name)
	if c.Workspace.Name == "" {
		c.Workspace.Name = defaultWorkspaceName
	}
	c.Workspace.Filesystem = strings.TrimSpace(c.Workspace.Filesystem)
	if c.Workspace.Filesystem == "" {
		c.Workspace.Filesystem = defaultWorkspaceFS
	}
	if c.Workspace.DurationDays <= 0 {
		c.Workspace.DurationDays = defaultWorkspaceDuration
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
