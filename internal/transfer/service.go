package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"shuttle/internal/datamover"
	"shuttle/internal/ledger"
	"shuttle/internal/workspace"
)

// Direction selects which endpoint a sync treats as the source.
type Direction string

const (
	DirectionFromFileserver Direction = "from-fileserver"
	DirectionToFileserver   Direction = "to-fileserver"
)

// ParseDirection converts a string into a known Direction.
func ParseDirection(value string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case DirectionFromFileserver, "":
		return DirectionFromFileserver, true
	case DirectionToFileserver:
		return DirectionToFileserver, true
	default:
		return "", false
	}
}

// SyncOptions drives Sync.
type SyncOptions struct {
	Direction Direction
	// Delete removes destination files missing at the source.
	Delete bool
	// OverwriteNewer replaces destination files even when they are newer.
	OverwriteNewer bool
	// Confirmed acknowledges the destructive flags above.
	Confirmed bool
	// Progress receives raw datamover output lines.
	Progress func(line string)
}

// Options configures a Service.
type Options struct {
	FileserverMount string
	ProjectSpace    string
	Datamover       *datamover.Client
	Workspace       *workspace.Manager
	Cache           workspace.CacheOptions
	Ledger          *ledger.Store
	Logger          *slog.Logger
}

// Service connects a fileserver share with a project space. All cross-mount
// movement goes through the datamover client; the service adds path
// resolution, the scratch cache, confirmation guards, and ledger records.
type Service struct {
	fileserver string
	project    string
	dm         *datamover.Client
	ws         *workspace.Manager
	cacheOpts  workspace.CacheOptions
	ledger     *ledger.Store
	logger     *slog.Logger

	mu       sync.Mutex
	cacheDir string
}

// New constructs a Service and ensures the project directory exists.
func New(opts Options) (*Service, error) {
	if strings.TrimSpace(opts.FileserverMount) == "" {
		return nil, errors.New("fileserver mount required")
	}
	if strings.TrimSpace(opts.ProjectSpace) == "" {
		return nil, errors.New("project space required")
	}
	if opts.Datamover == nil {
		return nil, errors.New("datamover client required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	service := &Service{
		fileserver: filepath.Clean(opts.FileserverMount),
		project:    filepath.Clean(opts.ProjectSpace),
		dm:         opts.Datamover,
		ws:         opts.Workspace,
		cacheOpts:  opts.Cache,
		ledger:     opts.Ledger,
		logger:     logger,
	}

	if err := os.MkdirAll(service.project, 0o755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	return service, nil
}

// ProjectSpace returns the project space root.
func (s *Service) ProjectSpace() string { return s.project }

// FileserverMount returns the fileserver mount root.
func (s *Service) FileserverMount() string { return s.fileserver }

// Sync mirrors one endpoint into the other via dtrsync. Destructive options
// (Delete, OverwriteNewer) are refused without confirmation before anything
// is submitted.
func (s *Service) Sync(ctx context.Context, opts SyncOptions) error {
	direction, ok := ParseDirection(string(opts.Direction))
	if !ok {
		return fmt.Errorf("unknown sync direction %q", opts.Direction)
	}
	if (opts.Delete || opts.OverwriteNewer) && !opts.Confirmed {
		return fmt.Errorf("sync with delete or overwrite-newer would discard data at the destination: %w", ErrConfirmationRequired)
	}

	src, dst := s.fileserver, s.project
	if direction == DirectionToFileserver {
		src, dst = s.project, s.fileserver
	}

	s.logger.Info("sync submitted",
		slog.String("direction", string(direction)),
		slog.String("source", src),
		slog.String("destination", dst),
		slog.Bool("delete", opts.Delete),
		slog.Bool("overwrite_newer", opts.OverwriteNewer))

	finish := s.record(ctx, ledger.OpSync, src, dst)
	err := s.dm.Sync(ctx, src, dst, datamover.SyncOptions{
		Delete:         opts.Delete,
		OverwriteNewer: opts.OverwriteNewer,
		Progress:       opts.Progress,
	})
	finish(err)
	if err != nil {
		return fmt.Errorf("sync %s: %w", direction, err)
	}
	return nil
}

// Get makes a file reachable locally and returns its path. Resolution
// order: an existing absolute path is returned as-is, then a copy in the
// project space, then a previously cached copy, and finally the file is
// fetched from the fileserver into the cache. Repeated calls return the
// cached copy even when the fileserver copy has changed since.
func (s *Service) Get(ctx context.Context, name string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", errors.New("file name required")
	}

	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	rel := filepath.FromSlash(name)
	if escapesRoot(rel) {
		return "", fmt.Errorf("%s: name escapes the managed directories", name)
	}
	if projectPath := filepath.Join(s.project, rel); fileExists(projectPath) {
		return projectPath, nil
	}

	cacheDir, err := s.ensureCache(ctx)
	if err != nil {
		return "", err
	}
	cached := filepath.Join(cacheDir, rel)
	if fileExists(cached) {
		return cached, nil
	}

	if err := os.MkdirAll(filepath.Dir(cached), 0o700); err != nil {
		return "", fmt.Errorf("prepare cache: %w", err)
	}

	src := filepath.Join(s.fileserver, rel)
	s.logger.Info("fetching file from fileserver",
		slog.String("source", src),
		slog.String("cache", cached))

	finish := s.record(ctx, ledger.OpCopy, src, cached)
	err = s.dm.Copy(ctx, src, cached, true)
	finish(err)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	if !fileExists(cached) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return cached, nil
}

// Put copies a local file or directory to the fileserver and returns the
// destination path. Relative paths resolve inside the project space;
// remoteName defaults to the source base name.
func (s *Service) Put(ctx context.Context, localPath, remoteName string) (string, error) {
	localPath = normalizeName(localPath)
	if localPath == "" {
		return "", errors.New("local path required")
	}
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(s.project, filepath.FromSlash(localPath))
	}

	info, err := os.Stat(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", localPath, ErrNotFound)
		}
		return "", fmt.Errorf("inspect %s: %w", localPath, err)
	}

	remoteName = normalizeName(remoteName)
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	dst := filepath.Join(s.fileserver, filepath.FromSlash(strings.TrimPrefix(remoteName, "/")))

	s.logger.Info("copying to fileserver",
		slog.String("source", localPath),
		slog.String("destination", dst))

	finish := s.record(ctx, ledger.OpCopy, localPath, dst)
	err = s.dm.Copy(ctx, localPath, dst, info.IsDir())
	finish(err)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", localPath, err)
	}
	return dst, nil
}

// Move moves a file or directory from the project space to the fileserver
// via dtmv and returns the destination path. The source is gone afterwards;
// path resolution matches Put.
func (s *Service) Move(ctx context.Context, localPath, remoteName string) (string, error) {
	localPath = normalizeName(localPath)
	if localPath == "" {
		return "", errors.New("local path required")
	}
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(s.project, filepath.FromSlash(localPath))
	}
	if !fileExists(localPath) {
		return "", fmt.Errorf("%s: %w", localPath, ErrNotFound)
	}

	remoteName = normalizeName(remoteName)
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	dst := filepath.Join(s.fileserver, filepath.FromSlash(strings.TrimPrefix(remoteName, "/")))

	s.logger.Info("moving to fileserver",
		slog.String("source", localPath),
		slog.String("destination", dst))

	finish := s.record(ctx, ledger.OpMove, localPath, dst)
	err := s.dm.Move(ctx, localPath, dst)
	finish(err)
	if err != nil {
		return "", fmt.Errorf("move %s: %w", localPath, err)
	}
	return dst, nil
}

// Pending tracks a remove submitted without waiting.
type Pending struct {
	done chan struct{}
	err  error
}

// Wait blocks until the operation finished and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// Remove deletes a file or directory from the project space via dtrm. With
// wait the call blocks until the datamover job finished and reports its
// outcome; without it the job is left running and the returned Pending can
// be used to collect the result.
func (s *Service) Remove(ctx context.Context, name string, wait bool) (*Pending, error) {
	path, err := s.resolveInProject(name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("remove submitted", slog.String("path", path), slog.Bool("wait", wait))

	run := func() error {
		finish := s.record(ctx, ledger.OpRemove, path, "")
		err := s.dm.Remove(ctx, path, true)
		finish(err)
		if err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	}

	if wait {
		return nil, run()
	}

	pending := &Pending{done: make(chan struct{})}
	go func() {
		defer close(pending.done)
		pending.err = run()
	}()
	return pending, nil
}

// ListProject walks the project space and returns all contained paths,
// sorted.
func (s *Service) ListProject(ctx context.Context) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(s.project, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == s.project {
			return nil
		}
		entries = append(entries, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list project space: %w", err)
	}
	// WalkDir visits lexically, so entries are already sorted.
	return entries, nil
}

// ListFileserver lists the fileserver mount recursively via dtls.
func (s *Service) ListFileserver(ctx context.Context) ([]string, error) {
	entries, err := s.dm.List(ctx, s.fileserver)
	if err != nil {
		return nil, fmt.Errorf("list fileserver: %w", err)
	}
	return entries, nil
}

// CachePath returns the cache directory, allocating it when necessary.
func (s *Service) CachePath(ctx context.Context) (string, error) {
	return s.ensureCache(ctx)
}

func (s *Service) ensureCache(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheDir != "" {
		return s.cacheDir, nil
	}

	if s.ws == nil {
		if s.cacheOpts.Dir == "" {
			return "", errors.New("no cache directory configured and no workspace manager available")
		}
		if err := os.MkdirAll(s.cacheOpts.Dir, 0o700); err != nil {
			return "", fmt.Errorf("create cache dir: %w", err)
		}
		s.cacheDir = s.cacheOpts.Dir
		return s.cacheDir, nil
	}

	dir, err := s.ws.EnsureCache(ctx, s.cacheOpts)
	if err != nil {
		return "", fmt.Errorf("ensure cache workspace: %w", err)
	}
	s.cacheDir = dir
	return dir, nil
}

// resolveInProject maps a name onto a path inside the project space.
// Absolute paths are accepted only when they already point into it.
func (s *Service) resolveInProject(name string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", errors.New("file name required")
	}
	if filepath.IsAbs(name) {
		cleaned := filepath.Clean(name)
		if cleaned != s.project && !strings.HasPrefix(cleaned, s.project+string(os.PathSeparator)) {
			return "", fmt.Errorf("%s is outside the project space %s", cleaned, s.project)
		}
		return cleaned, nil
	}
	return filepath.Join(s.project, filepath.FromSlash(strings.TrimPrefix(name, "/"))), nil
}

// record opens a ledger row for a datamover submission and returns the
// closure finalizing it. Ledger trouble is logged, never fatal: losing a
// history row must not fail a transfer.
func (s *Service) record(ctx context.Context, op ledger.Operation, source, destination string) func(error) {
	if s.ledger == nil {
		return func(error) {}
	}
	job, err := s.ledger.Begin(ctx, op, source, destination)
	if err != nil {
		s.logger.Warn("ledger record failed", slog.Any("error", err))
		return func(error) {}
	}
	if err := s.ledger.MarkRunning(ctx, job.ID); err != nil {
		s.logger.Warn("ledger update failed", slog.Any("error", err))
	}
	return func(opErr error) {
		var updateErr error
		if opErr != nil {
			updateErr = s.ledger.MarkFailed(ctx, job.ID, opErr.Error())
		} else {
			updateErr = s.ledger.MarkCompleted(ctx, job.ID)
		}
		if updateErr != nil {
			s.logger.Warn("ledger update failed", slog.Any("error", updateErr))
		}
	}
}

// normalizeName trims whitespace and converts Windows-style separators, so
// names copied from a fileserver share work as-is.
func normalizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
}

// escapesRoot reports whether a relative name climbs out of the directory
// it will be joined onto.
func escapesRoot(rel string) bool {
	cleaned := filepath.Clean(rel)
	return cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
