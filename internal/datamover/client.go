package datamover

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Tool names as installed by the cluster's slurmtools bundle. Each submits
// a transfer job to the institutionally operated datamover and blocks until
// the job finishes.
const (
	toolCopy   = "dtcp"
	toolMove   = "dtmv"
	toolRemove = "dtrm"
	toolList   = "dtls"
	toolSync   = "dtrsync"
)

// Tools returns the datamover tool names shuttle invokes.
func Tools() []string {
	return []string{toolCopy, toolList, toolMove, toolRemove, toolSync}
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Timeouts holds per-operation deadlines. Zero means wait indefinitely.
type Timeouts struct {
	Transfer time.Duration
	List     time.Duration
	Remove   time.Duration
}

// SyncOptions tunes a dtrsync invocation.
type SyncOptions struct {
	// Delete removes destination files that no longer exist at the source.
	Delete bool
	// OverwriteNewer replaces destination files even when they are newer
	// than the source copy. Without it dtrsync runs with -u.
	OverwriteNewer bool
	// Progress receives raw dtrsync output lines as they arrive.
	Progress func(line string)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the datamover command line tools.
type Client struct {
	binDir   string
	timeouts Timeouts
	exec     Executor
}

// New constructs a datamover client. binDir may be empty, in which case the
// tools are resolved from PATH.
func New(binDir string, timeouts Timeouts, opts ...Option) (*Client, error) {
	if timeouts.Transfer < 0 || timeouts.List < 0 || timeouts.Remove < 0 {
		return nil, errors.New("datamover timeouts must not be negative")
	}
	client := &Client{
		binDir:   strings.TrimSpace(binDir),
		timeouts: timeouts,
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Copy submits a dtcp job copying src to dst.
func (c *Client) Copy(ctx context.Context, src, dst string, recursive bool) error {
	if err := requirePaths(src, dst); err != nil {
		return fmt.Errorf("dtcp: %w", err)
	}
	args := make([]string, 0, 3)
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, src, dst)
	return c.run(ctx, toolCopy, c.timeouts.Transfer, args, nil)
}

// Move submits a dtmv job moving src to dst.
func (c *Client) Move(ctx context.Context, src, dst string) error {
	if err := requirePaths(src, dst); err != nil {
		return fmt.Errorf("dtmv: %w", err)
	}
	return c.run(ctx, toolMove, c.timeouts.Transfer, []string{src, dst}, nil)
}

// Remove submits a dtrm job deleting path.
func (c *Client) Remove(ctx context.Context, path string, recursive bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("dtrm: path required")
	}
	args := make([]string, 0, 2)
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, path)
	return c.run(ctx, toolRemove, c.timeouts.Remove, args, nil)
}

// List runs dtls -R1 against path and returns the entries it reported,
// resolved against their directory headers and sorted.
func (c *Client) List(ctx context.Context, path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dtls: path required")
	}
	var lines []string
	err := c.run(ctx, toolList, c.timeouts.List, []string{"-R1", path}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, err
	}
	return parseRecursiveListing(path, lines), nil
}

// Sync submits a dtrsync job mirroring src into dst. src is submitted with
// a trailing slash so the directory contents, not the directory itself, are
// synchronized.
func (c *Client) Sync(ctx context.Context, src, dst string, opts SyncOptions) error {
	if err := requirePaths(src, dst); err != nil {
		return fmt.Errorf("dtrsync: %w", err)
	}
	args := []string{"-a", "-v"}
	if !opts.OverwriteNewer {
		args = append(args, "-u")
	}
	if opts.Delete {
		args = append(args, "--delete")
	}
	args = append(args, strings.TrimRight(src, "/")+"/", dst)
	return c.run(ctx, toolSync, c.timeouts.Transfer, args, opts.Progress)
}

func (c *Client) run(ctx context.Context, tool string, timeout time.Duration, args []string, onLine func(string)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tail := newLineTail(20)
	forward := func(line string) {
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	}

	if err := c.exec.Run(ctx, c.binary(tool), args, forward); err != nil {
		if output := tail.String(); output != "" {
			return fmt.Errorf("%s: %w\noutput:\n%s", tool, err, output)
		}
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}

func (c *Client) binary(tool string) string {
	if c.binDir == "" {
		return tool
	}
	return filepath.Join(c.binDir, tool)
}

func requirePaths(src, dst string) error {
	if strings.TrimSpace(src) == "" {
		return errors.New("source required")
	}
	if strings.TrimSpace(dst) == "" {
		return errors.New("destination required")
	}
	return nil
}

// parseRecursiveListing resolves ls -R1 style output into full paths.
// Directory header lines end with ":" and scope the entries that follow.
func parseRecursiveListing(root string, lines []string) []string {
	current := root
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, ":") {
			current = strings.TrimSuffix(trimmed, ":")
			continue
		}
		if strings.HasPrefix(trimmed, "total ") {
			continue
		}
		entries = append(entries, filepath.Join(current, trimmed))
	}
	sort.Strings(entries)
	return entries
}

// lineTail keeps the last n output lines for error context.
type lineTail struct {
	limit int
	lines []string
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (t *lineTail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) String() string {
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}
