package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the storage locations shuttle operates on.
type Paths struct {
	FileserverMount string `toml:"fileserver_mount"`
	ProjectSpace    string `toml:"project_space"`
	CacheDir        string `toml:"cache_dir"`
	LogDir          string `toml:"log_dir"`
	LedgerDir       string `toml:"ledger_dir"`
}

// Datamover contains settings for the institutional datamover tools.
type Datamover struct {
	BinDir string `toml:"bin_dir"`
	// Timeouts are in seconds; zero waits indefinitely, matching the
	// behavior of an unattended dtcp submission.
	TransferTimeout int `toml:"transfer_timeout"`
	ListTimeout     int `toml:"list_timeout"`
	RemoveTimeout   int `toml:"remove_timeout"`
}

// Workspace contains settings for the HPC workspace tools backing the cache.
type Workspace struct {
	BinDir       string `toml:"bin_dir"`
	Name         string `toml:"name"`
	Filesystem   string `toml:"filesystem"`
	DurationDays int    `toml:"duration_days"`
	AutoAllocate bool   `toml:"auto_allocate"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shuttle.
//
// Configuration sections:
//   - Paths: fileserver mount, project space, cache, log and ledger dirs
//   - Datamover: dt* tool location and per-operation timeouts
//   - Workspace: ws_* tool location and scratch cache allocation
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Datamover Datamover `toml:"datamover"`
	Workspace Workspace `toml:"workspace"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shuttle/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shuttle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories shuttle writes to. The
// cache dir is created on a best-effort basis because it may live on a
// scratch filesystem that is allocated lazily.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.LedgerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.CacheDir) != "" {
		_ = os.MkdirAll(c.Paths.CacheDir, 0o755)
	}
	return nil
}

// TransferBinary returns the absolute path to a datamover tool when a bin
// dir is configured, otherwise the bare name for PATH resolution.
func (c *Config) TransferBinary(name string) string {
	if strings.TrimSpace(c.Datamover.BinDir) == "" {
		return name
	}
	return filepath.Join(c.Datamover.BinDir, name)
}

// WorkspaceBinary returns the absolute path to a workspace tool when a bin
// dir is configured, otherwise the bare name for PATH resolution.
func (c *Config) WorkspaceBinary(name string) string {
	if strings.TrimSpace(c.Workspace.BinDir) == "" {
		return name
	}
	return filepath.Join(c.Workspace.BinDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
