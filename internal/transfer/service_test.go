package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shuttle/internal/datamover"
	"shuttle/internal/ledger"
	"shuttle/internal/transfer"
	"shuttle/internal/workspace"
)

// clusterExecutor emulates the datamover tools with plain filesystem
// operations so the service can be exercised end to end against temp
// directories.
type clusterExecutor struct {
	mu    sync.Mutex
	calls []toolCall
	fail  map[string]error
}

type toolCall struct {
	tool string
	args []string
}

func (e *clusterExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	tool := filepath.Base(binary)

	e.mu.Lock()
	e.calls = append(e.calls, toolCall{tool: tool, args: append([]string(nil), args...)})
	failErr := e.fail[tool]
	e.mu.Unlock()

	if failErr != nil {
		if onLine != nil {
			onLine("job failed")
		}
		return failErr
	}

	switch tool {
	case "dtcp":
		rest := args
		if rest[0] == "-r" {
			rest = rest[1:]
		}
		return copyPath(rest[0], rest[1])
	case "dtmv":
		if err := copyPath(args[0], args[1]); err != nil {
			return err
		}
		return os.RemoveAll(args[0])
	case "dtrm":
		rest := args
		if rest[0] == "-r" {
			rest = rest[1:]
		}
		return os.RemoveAll(rest[0])
	case "dtrsync":
		var skipNewer, deleteExtra bool
		var paths []string
		for _, arg := range args {
			switch arg {
			case "-a", "-v":
			case "-u":
				skipNewer = true
			case "--delete":
				deleteExtra = true
			default:
				paths = append(paths, arg)
			}
		}
		if len(paths) != 2 {
			return fmt.Errorf("dtrsync: unexpected arguments %q", args)
		}
		return syncDirs(strings.TrimSuffix(paths[0], "/"), paths[1], skipNewer, deleteExtra, onLine)
	case "dtls":
		entries, err := os.ReadDir(args[len(args)-1])
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if onLine != nil {
				onLine(entry.Name())
			}
		}
		return nil
	default:
		return fmt.Errorf("unexpected tool %q", tool)
	}
}

func (e *clusterExecutor) count(tool string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c.tool == tool {
			n++
		}
	}
	return n
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.ModTime())
	}
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		fileInfo, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fileInfo.ModTime())
	})
}

func copyFile(src, dst string, mtime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, mtime, mtime)
}

func syncDirs(src, dst string, skipNewer, deleteExtra bool, onLine func(string)) error {
	err := filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		srcInfo, err := entry.Info()
		if err != nil {
			return err
		}
		if skipNewer {
			if dstInfo, statErr := os.Stat(target); statErr == nil && dstInfo.ModTime().After(srcInfo.ModTime()) {
				return nil
			}
		}
		if onLine != nil {
			onLine(rel)
		}
		return copyFile(path, target, srcInfo.ModTime())
	})
	if err != nil {
		return err
	}
	if !deleteExtra {
		return nil
	}
	return filepath.WalkDir(dst, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == dst {
			return nil
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(filepath.Join(src, rel)); os.IsNotExist(statErr) {
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return removeErr
			}
			if entry.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
}

type fixture struct {
	fileserver string
	project    string
	cache      string
	exec       *clusterExecutor
	service    *transfer.Service
}

func newFixture(t *testing.T, store *ledger.Store) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		fileserver: filepath.Join(root, "fileserver"),
		project:    filepath.Join(root, "project"),
		cache:      filepath.Join(root, "cache"),
		exec:       &clusterExecutor{fail: map[string]error{}},
	}
	if err := os.MkdirAll(f.fileserver, 0o755); err != nil {
		t.Fatalf("create fileserver dir: %v", err)
	}

	dm, err := datamover.New("", datamover.Timeouts{}, datamover.WithExecutor(f.exec))
	if err != nil {
		t.Fatalf("datamover.New returned error: %v", err)
	}

	service, err := transfer.New(transfer.Options{
		FileserverMount: f.fileserver,
		ProjectSpace:    f.project,
		Datamover:       dm,
		Cache:           workspace.CacheOptions{Dir: f.cache},
		Ledger:          store,
	})
	if err != nil {
		t.Fatalf("transfer.New returned error: %v", err)
	}
	f.service = service
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewCreatesProjectDirectory(t *testing.T) {
	f := newFixture(t, nil)
	info, err := os.Stat(f.project)
	if err != nil {
		t.Fatalf("project directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("project path is not a directory")
	}
}

func TestSyncFromFileserver(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.fileserver, "data", "cells.tif"), "pixels")

	if err := f.service.Sync(context.Background(), transfer.SyncOptions{}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := readFile(t, filepath.Join(f.project, "data", "cells.tif")); got != "pixels" {
		t.Fatalf("unexpected synced content: %q", got)
	}
}

func TestSyncToFileserver(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "results.csv"), "x,y")

	err := f.service.Sync(context.Background(), transfer.SyncOptions{Direction: transfer.DirectionToFileserver})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := readFile(t, filepath.Join(f.fileserver, "results.csv")); got != "x,y" {
		t.Fatalf("unexpected synced content: %q", got)
	}
}

func TestSyncKeepsNewerDestinationByDefault(t *testing.T) {
	f := newFixture(t, nil)
	srcPath := filepath.Join(f.fileserver, "notes.txt")
	dstPath := filepath.Join(f.project, "notes.txt")
	writeFile(t, srcPath, "old")
	writeFile(t, dstPath, "edited on the cluster")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(srcPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := f.service.Sync(context.Background(), transfer.SyncOptions{}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got := readFile(t, dstPath); got != "edited on the cluster" {
		t.Fatalf("newer destination file was overwritten: %q", got)
	}
}

func TestSyncOverwriteNewerRequiresConfirmation(t *testing.T) {
	f := newFixture(t, nil)

	err := f.service.Sync(context.Background(), transfer.SyncOptions{OverwriteNewer: true})
	if !errors.Is(err, transfer.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got: %v", err)
	}
	if f.exec.count("dtrsync") != 0 {
		t.Fatal("dtrsync must not run without confirmation")
	}
}

func TestSyncDeleteRemovesExtraFilesWhenConfirmed(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.fileserver, "keep.txt"), "keep")
	writeFile(t, filepath.Join(f.project, "stale.txt"), "stale")

	err := f.service.Sync(context.Background(), transfer.SyncOptions{Delete: true, Confirmed: true})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(f.project, "stale.txt")); !os.IsNotExist(statErr) {
		t.Fatal("expected stale.txt to be deleted")
	}
	if got := readFile(t, filepath.Join(f.project, "keep.txt")); got != "keep" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestGetPrefersProjectCopy(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "img.tif"), "project copy")
	writeFile(t, filepath.Join(f.fileserver, "img.tif"), "fileserver copy")

	path, err := f.service.Get(context.Background(), "img.tif")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if path != filepath.Join(f.project, "img.tif") {
		t.Fatalf("unexpected path: %q", path)
	}
	if f.exec.count("dtcp") != 0 {
		t.Fatal("project copy must not trigger a datamover job")
	}
}

func TestGetFetchesIntoCacheAndReusesIt(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.fileserver, "raw", "scan.tif"), "v1")

	first, err := f.service.Get(context.Background(), "raw/scan.tif")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if first != filepath.Join(f.cache, "raw", "scan.tif") {
		t.Fatalf("unexpected cache path: %q", first)
	}
	if got := readFile(t, first); got != "v1" {
		t.Fatalf("unexpected content: %q", got)
	}

	// A later fileserver update must not be picked up: the cached copy wins
	// until the cache is cleared.
	writeFile(t, filepath.Join(f.fileserver, "raw", "scan.tif"), "v2")
	second, err := f.service.Get(context.Background(), "raw/scan.tif")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if second != first {
		t.Fatalf("expected stable cache path, got %q and %q", first, second)
	}
	if got := readFile(t, second); got != "v1" {
		t.Fatalf("expected cached content, got %q", got)
	}
	if f.exec.count("dtcp") != 1 {
		t.Fatalf("expected a single dtcp job, got %d", f.exec.count("dtcp"))
	}
}

func TestGetAcceptsWindowsSeparators(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "sub", "a.txt"), "a")

	path, err := f.service.Get(context.Background(), `sub\a.txt`)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if path != filepath.Join(f.project, "sub", "a.txt") {
		t.Fatalf("unexpected path: %q", path)
	}
}

func TestGetAbsolutePathPassthrough(t *testing.T) {
	f := newFixture(t, nil)
	local := filepath.Join(t.TempDir(), "local.txt")
	writeFile(t, local, "local")

	path, err := f.service.Get(context.Background(), local)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if path != local {
		t.Fatalf("unexpected path: %q", path)
	}

	missing := filepath.Join(t.TempDir(), "missing.txt")
	if _, err := f.service.Get(context.Background(), missing); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetRejectsEscapingName(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.service.Get(context.Background(), "../outside.txt"); err == nil {
		t.Fatal("expected error for name escaping the managed directories")
	}
}

func TestPutDefaultsRemoteName(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "out", "table.csv"), "1,2")

	dst, err := f.service.Put(context.Background(), "out/table.csv", "")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if dst != filepath.Join(f.fileserver, "table.csv") {
		t.Fatalf("unexpected destination: %q", dst)
	}
	if got := readFile(t, dst); got != "1,2" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestPutDirectoryWithExplicitRemoteName(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "run42", "a.txt"), "a")
	writeFile(t, filepath.Join(f.project, "run42", "sub", "b.txt"), "b")

	dst, err := f.service.Put(context.Background(), "run42", "archive/run42")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if dst != filepath.Join(f.fileserver, "archive", "run42") {
		t.Fatalf("unexpected destination: %q", dst)
	}
	if got := readFile(t, filepath.Join(dst, "sub", "b.txt")); got != "b" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestMoveRemovesSource(t *testing.T) {
	f := newFixture(t, nil)
	src := filepath.Join(f.project, "done", "result.h5")
	writeFile(t, src, "weights")

	dst, err := f.service.Move(context.Background(), "done/result.h5", "archive/result.h5")
	if err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if dst != filepath.Join(f.fileserver, "archive", "result.h5") {
		t.Fatalf("unexpected destination: %q", dst)
	}
	if got := readFile(t, dst); got != "weights" {
		t.Fatalf("unexpected content: %q", got)
	}
	if _, statErr := os.Stat(src); !os.IsNotExist(statErr) {
		t.Fatal("expected source to be removed")
	}
}

func TestMoveMissingSource(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.service.Move(context.Background(), "ghost.h5", ""); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestPutMissingLocalFile(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.service.Put(context.Background(), "nope.txt", ""); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRemoveWaits(t *testing.T) {
	f := newFixture(t, nil)
	target := filepath.Join(f.project, "old")
	writeFile(t, filepath.Join(target, "junk.bin"), "junk")

	pending, err := f.service.Remove(context.Background(), "old", true)
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if pending != nil {
		t.Fatal("waiting remove must not return a pending handle")
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatal("expected directory to be removed")
	}
}

func TestRemoveNoWaitReturnsPending(t *testing.T) {
	f := newFixture(t, nil)
	target := filepath.Join(f.project, "junk.bin")
	writeFile(t, target, "junk")

	pending, err := f.service.Remove(context.Background(), "junk.bin", false)
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if pending == nil {
		t.Fatal("expected pending handle")
	}
	if waitErr := pending.Wait(); waitErr != nil {
		t.Fatalf("Wait returned error: %v", waitErr)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatal("expected file to be removed")
	}
}

func TestRemoveRejectsPathOutsideProject(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.service.Remove(context.Background(), "/etc/passwd", true); err == nil {
		t.Fatal("expected error for path outside the project space")
	}
	if f.exec.count("dtrm") != 0 {
		t.Fatal("dtrm must not run for rejected paths")
	}
}

func TestListProjectSorted(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.project, "b.txt"), "b")
	writeFile(t, filepath.Join(f.project, "a", "nested.txt"), "n")

	entries, err := f.service.ListProject(context.Background())
	if err != nil {
		t.Fatalf("ListProject returned error: %v", err)
	}
	want := []string{
		filepath.Join(f.project, "a"),
		filepath.Join(f.project, "a", "nested.txt"),
		filepath.Join(f.project, "b.txt"),
	}
	if len(entries) != len(want) {
		t.Fatalf("unexpected entries: %v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, entries[i], want[i])
		}
	}
}

func TestListFileserver(t *testing.T) {
	f := newFixture(t, nil)
	writeFile(t, filepath.Join(f.fileserver, "shared.txt"), "s")

	entries, err := f.service.ListFileserver(context.Background())
	if err != nil {
		t.Fatalf("ListFileserver returned error: %v", err)
	}
	if len(entries) != 1 || entries[0] != filepath.Join(f.fileserver, "shared.txt") {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestSyncRecordsLedgerJob(t *testing.T) {
	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("ledger.Open returned error: %v", err)
	}
	defer store.Close()

	f := newFixture(t, store)
	writeFile(t, filepath.Join(f.fileserver, "a.txt"), "a")

	if err := f.service.Sync(context.Background(), transfer.SyncOptions{}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	jobs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Operation != ledger.OpSync || job.Status != ledger.StatusCompleted {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Source != f.fileserver || job.Destination != f.project {
		t.Fatalf("unexpected endpoints: %q -> %q", job.Source, job.Destination)
	}
}

func TestFailedJobRecordedWithMessage(t *testing.T) {
	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("ledger.Open returned error: %v", err)
	}
	defer store.Close()

	f := newFixture(t, store)
	f.exec.fail["dtrsync"] = errors.New("exit status 1")

	syncErr := f.service.Sync(context.Background(), transfer.SyncOptions{})
	if syncErr == nil {
		t.Fatal("expected sync to fail")
	}

	jobs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != ledger.StatusFailed {
		t.Fatalf("unexpected status: %q", jobs[0].Status)
	}
	if !strings.Contains(jobs[0].ErrorMessage, "exit status 1") {
		t.Fatalf("unexpected error message: %q", jobs[0].ErrorMessage)
	}
}

func TestParseDirection(t *testing.T) {
	if dir, ok := transfer.ParseDirection(""); !ok || dir != transfer.DirectionFromFileserver {
		t.Fatalf("unexpected default direction: %q ok=%v", dir, ok)
	}
	if dir, ok := transfer.ParseDirection(" To-Fileserver "); !ok || dir != transfer.DirectionToFileserver {
		t.Fatalf("unexpected direction: %q ok=%v", dir, ok)
	}
	if _, ok := transfer.ParseDirection("sideways"); ok {
		t.Fatal("expected unknown direction to be rejected")
	}
}
