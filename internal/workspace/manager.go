package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Tool names from the HPC workspace mechanism.
const (
	toolAllocate = "ws_allocate"
	toolList     = "ws_list"
	toolRelease  = "ws_release"
	toolExtend   = "ws_extend"
)

// Tools returns the workspace tool names shuttle invokes.
func Tools() []string {
	return []string{toolAllocate, toolExtend, toolList, toolRelease}
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Entry describes one allocated workspace as reported by ws_list.
type Entry struct {
	Name       string
	Path       string
	Filesystem string
	Remaining  time.Duration
	Extensions int
}

// Option configures the manager.
type Option func(*Manager)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(m *Manager) {
		if exec != nil {
			m.exec = exec
		}
	}
}

// Manager wraps the workspace allocation tools for a single filesystem.
type Manager struct {
	binDir     string
	filesystem string
	exec       Executor
}

// New constructs a workspace manager. binDir may be empty for PATH lookup.
func New(binDir, filesystem string, opts ...Option) (*Manager, error) {
	filesystem = strings.TrimSpace(filesystem)
	if filesystem == "" {
		return nil, errors.New("workspace filesystem required")
	}
	manager := &Manager{
		binDir:     strings.TrimSpace(binDir),
		filesystem: filesystem,
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager, nil
}

// Allocate creates (or extends the lifetime of an existing) workspace and
// returns its root path. ws_allocate prints the path as the last line of
// its output.
func (m *Manager) Allocate(ctx context.Context, name string, days int) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("workspace name required")
	}
	if days <= 0 {
		return "", errors.New("workspace duration must be positive")
	}

	var last string
	err := m.run(ctx, toolAllocate, []string{"-F", m.filesystem, name, strconv.Itoa(days)}, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			last = trimmed
		}
	})
	if err != nil {
		return "", err
	}
	if last == "" || !strings.HasPrefix(last, "/") {
		return "", fmt.Errorf("ws_allocate: no workspace path in output (last line %q)", last)
	}
	return last, nil
}

// List reports the allocated workspaces. Entries ws_list prints in a shape
// we do not recognize are skipped rather than treated as fatal.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	var lines []string
	err := m.run(ctx, toolList, nil, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, err
	}
	return parseList(lines), nil
}

// Find returns the workspace with the given name, or ok=false.
func (m *Manager) Find(ctx context.Context, name string) (Entry, bool, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, entry := range entries {
		if entry.Name == name {
			return entry, true, nil
		}
	}
	return Entry{}, false, nil
}

// Release returns a workspace to the pool. The data becomes unreachable.
func (m *Manager) Release(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("workspace name required")
	}
	return m.run(ctx, toolRelease, []string{"-F", m.filesystem, name}, nil)
}

// Extend prolongs a workspace by the given number of days, consuming one of
// its available extensions.
func (m *Manager) Extend(ctx context.Context, name string, days int) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("workspace name required")
	}
	if days <= 0 {
		return errors.New("workspace duration must be positive")
	}
	return m.run(ctx, toolExtend, []string{"-F", m.filesystem, name, strconv.Itoa(days)}, nil)
}

// CacheOptions drives EnsureCache.
type CacheOptions struct {
	// Dir is an explicitly configured cache directory. When set and
	// present it wins over workspace allocation.
	Dir string
	// Name is the workspace name used when allocating.
	Name string
	// DurationDays is the allocation lifetime.
	DurationDays int
	// AutoAllocate permits allocating a new workspace when none exists.
	AutoAllocate bool
}

// ErrNoCache indicates no cache directory exists and allocation was not
// permitted.
var ErrNoCache = errors.New("no cache workspace available")

// EnsureCache returns a usable cache directory, allocating a scratch
// workspace when needed and permitted.
func (m *Manager) EnsureCache(ctx context.Context, opts CacheOptions) (string, error) {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
			return "", fmt.Errorf("create cache dir: %w", err)
		}
		return opts.Dir, nil
	}
	if strings.TrimSpace(opts.Name) == "" {
		return "", errors.New("workspace name required")
	}

	if entry, ok, err := m.Find(ctx, opts.Name); err != nil {
		return "", err
	} else if ok {
		return ensureCacheSubdir(entry.Path)
	}

	if !opts.AutoAllocate {
		return "", fmt.Errorf("%w: workspace %q not found and auto allocation is disabled", ErrNoCache, opts.Name)
	}

	root, err := m.Allocate(ctx, opts.Name, opts.DurationDays)
	if err != nil {
		return "", err
	}
	return ensureCacheSubdir(root)
}

func ensureCacheSubdir(root string) (string, error) {
	dir := filepath.Join(root, "cache")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return dir, nil
}

func (m *Manager) run(ctx context.Context, tool string, args []string, onLine func(string)) error {
	binary := tool
	if m.binDir != "" {
		binary = filepath.Join(m.binDir, tool)
	}
	if err := m.exec.Run(ctx, binary, args, onLine); err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}
