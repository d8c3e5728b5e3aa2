package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDatamover(); err != nil {
		return err
	}
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.FileserverMount == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shuttle/config.toml"
		}
		return fmt.Errorf("paths.fileserver_mount is required. Set SHUTTLE_FILESERVER_MOUNT or edit %s (create with 'shuttle config init')", defaultPath)
	}
	if c.Paths.ProjectSpace == "" {
		return errors.New("paths.project_space is required. Set SHUTTLE_PROJECT_SPACE or edit the config file")
	}
	return nil
}

func (c *Config) validateDatamover() error {
	for key, value := range map[string]int{
		"datamover.transfer_timeout": c.Datamover.TransferTimeout,
		"datamover.list_timeout":     c.Datamover.ListTimeout,
		"datamover.remove_timeout":   c.Datamover.RemoveTimeout,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	if c.Workspace.DurationDays <= 0 {
		return errors.New("workspace.duration_days must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
