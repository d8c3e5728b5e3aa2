package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shuttle/internal/workspace"
)

type stubExecutor struct {
	outputs map[string][]string
	err     error
	args    [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.args = append(s.args, append([]string{binary}, args...))
	if s.err != nil {
		return s.err
	}
	for _, line := range s.outputs[filepath.Base(binary)] {
		if onLine != nil {
			onLine(line)
		}
	}
	return nil
}

func newManager(t *testing.T, exec workspace.Executor) *workspace.Manager {
	t.Helper()
	manager, err := workspace.New("/opt/ws/bin", "ssd", workspace.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return manager
}

func TestAllocateReturnsLastOutputLine(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_allocate": {
			"Info: creating workspace.",
			"/ssd/ws/user-shuttle-cache",
		},
	}}
	manager := newManager(t, exec)

	path, err := manager.Allocate(context.Background(), "shuttle-cache", 30)
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if path != "/ssd/ws/user-shuttle-cache" {
		t.Fatalf("unexpected path: %q", path)
	}
	want := []string{"/opt/ws/bin/ws_allocate", "-F", "ssd", "shuttle-cache", "30"}
	if len(exec.args) != 1 || !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected invocation: %v", exec.args)
	}
}

func TestAllocateErrorsWithoutPathOutput(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_allocate": {"Error: quota exceeded"},
	}}
	manager := newManager(t, exec)

	if _, err := manager.Allocate(context.Background(), "shuttle-cache", 30); err == nil {
		t.Fatal("expected error when no path is printed")
	}
}

func TestAllocateValidatesArguments(t *testing.T) {
	manager := newManager(t, &stubExecutor{})
	if _, err := manager.Allocate(context.Background(), "", 30); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := manager.Allocate(context.Background(), "x", 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestListParsesEntries(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_list": {
			"unavailable filesystems (overall capacity limit reached):",
			"",
			"id: shuttle-cache",
			"     workspace directory  : /ssd/ws/user-shuttle-cache",
			"     remaining time       : 29 days 23 hours",
			"     creation time        : Mon Aug 24 10:00:00 2026",
			"     filesystem name      : ssd",
			"     available extensions : 10",
			"id: analysis",
			"     workspace directory  : /ssd/ws/user-analysis",
			"     remaining time       : 2 days 1 hour",
			"     filesystem name      : ssd",
			"     available extensions : 0",
		},
	}}
	manager := newManager(t, exec)

	entries, err := manager.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	first := entries[0]
	if first.Name != "shuttle-cache" || first.Path != "/ssd/ws/user-shuttle-cache" || first.Filesystem != "ssd" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	wantRemaining := 29*24*time.Hour + 23*time.Hour
	if first.Remaining != wantRemaining {
		t.Fatalf("unexpected remaining: %v", first.Remaining)
	}
	if first.Extensions != 10 {
		t.Fatalf("unexpected extensions: %d", first.Extensions)
	}
}

func TestFindLocatesByName(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_list": {
			"id: other",
			"     workspace directory  : /ssd/ws/user-other",
			"id: shuttle-cache",
			"     workspace directory  : /ssd/ws/user-shuttle-cache",
		},
	}}
	manager := newManager(t, exec)

	entry, ok, err := manager.Find(context.Background(), "shuttle-cache")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if !ok || entry.Path != "/ssd/ws/user-shuttle-cache" {
		t.Fatalf("unexpected find result: ok=%v entry=%+v", ok, entry)
	}

	_, ok, err = manager.Find(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if ok {
		t.Fatal("expected missing workspace to not be found")
	}
}

func TestEnsureCachePrefersConfiguredDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	manager := newManager(t, &stubExecutor{err: errors.New("should not be called")})

	got, err := manager.EnsureCache(context.Background(), workspace.CacheOptions{Dir: dir})
	if err != nil {
		t.Fatalf("EnsureCache returned error: %v", err)
	}
	if got != dir {
		t.Fatalf("unexpected cache dir: %q", got)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected cache dir to exist: %v", err)
	}
}

func TestEnsureCacheUsesExistingWorkspace(t *testing.T) {
	root := t.TempDir()
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_list": {
			"id: shuttle-cache",
			"     workspace directory  : " + root,
		},
	}}
	manager := newManager(t, exec)

	got, err := manager.EnsureCache(context.Background(), workspace.CacheOptions{
		Name:         "shuttle-cache",
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("EnsureCache returned error: %v", err)
	}
	if got != filepath.Join(root, "cache") {
		t.Fatalf("unexpected cache dir: %q", got)
	}
}

func TestEnsureCacheAllocatesWhenPermitted(t *testing.T) {
	root := t.TempDir()
	exec := &stubExecutor{outputs: map[string][]string{
		"ws_list":     {},
		"ws_allocate": {root},
	}}
	manager := newManager(t, exec)

	got, err := manager.EnsureCache(context.Background(), workspace.CacheOptions{
		Name:         "shuttle-cache",
		DurationDays: 30,
		AutoAllocate: true,
	})
	if err != nil {
		t.Fatalf("EnsureCache returned error: %v", err)
	}
	if got != filepath.Join(root, "cache") {
		t.Fatalf("unexpected cache dir: %q", got)
	}
}

func TestEnsureCacheRefusesWithoutAutoAllocate(t *testing.T) {
	exec := &stubExecutor{outputs: map[string][]string{"ws_list": {}}}
	manager := newManager(t, exec)

	_, err := manager.EnsureCache(context.Background(), workspace.CacheOptions{
		Name:         "shuttle-cache",
		DurationDays: 30,
	})
	if !errors.Is(err, workspace.ErrNoCache) {
		t.Fatalf("expected ErrNoCache, got: %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
