// Package testsupport provides fixtures shared by the command tests: temp
// directory backed configurations and stub cluster binaries on PATH.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shuttle/internal/config"
	"shuttle/internal/datamover"
	"shuttle/internal/workspace"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The datamover and workspace bin dirs are left empty so stubbed binaries on
// PATH take effect.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.FileserverMount = filepath.Join(base, "fileserver")
	cfgVal.Paths.ProjectSpace = filepath.Join(base, "project")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerDir = filepath.Join(base, "ledger")
	cfgVal.Datamover.BinDir = ""
	cfgVal.Workspace.BinDir = ""

	if err := os.MkdirAll(cfgVal.Paths.FileserverMount, 0o755); err != nil {
		t.Fatalf("mkdir fileserver mount: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLogging overrides the log format and level on the test config.
func WithLogging(format, level string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Format = format
		b.cfg.Logging.Level = level
	}
}

// WithoutCacheDir clears the explicit cache dir so the workspace tools are
// consulted instead.
func WithoutCacheDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CacheDir = ""
	}
}

// WithStubbedBinaries writes no-op stub executables for the provided names
// and prepends their directory to PATH. Without names, all datamover and
// workspace tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = append(datamover.Tools(), workspace.Tools()...)
		}
		for _, name := range names {
			StubBinary(b.t, b.binDir(), name, "#!/bin/sh\nexit 0\n")
		}
		prependPath(b.t, b.binDir())
	}
}

// WithScriptedBinary writes a stub with the given shell body and prepends
// its directory to PATH.
func WithScriptedBinary(name, body string) ConfigOption {
	return func(b *configBuilder) {
		StubBinary(b.t, b.binDir(), name, body)
		prependPath(b.t, b.binDir())
	}
}

func (b *configBuilder) binDir() string {
	return filepath.Join(b.baseDir, "bin")
}

// StubBinary writes an executable shell script into dir.
func StubBinary(t testing.TB, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectSpace)
}
