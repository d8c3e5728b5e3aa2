package config

const (
	defaultLogDir            = "~/.local/share/shuttle/logs"
	defaultLedgerDir         = "~/.local/share/shuttle"
	defaultDatamoverBinDir   = "/sw/taurus/tools/slurmtools/default/bin"
	defaultListTimeout       = 300
	defaultRemoveTimeout     = 300
	defaultWorkspaceName     = "shuttle-cache"
	defaultWorkspaceFS       = "ssd"
	defaultWorkspaceDuration = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			LedgerDir: defaultLedgerDir,
		},
		Datamover: Datamover{
			BinDir:        defaultDatamoverBinDir,
			ListTimeout:   defaultListTimeout,
			RemoveTimeout: defaultRemoveTimeout,
		},
		Workspace: Workspace{
			Name:         defaultWorkspaceName,
			Filesystem:   defaultWorkspaceFS,
			DurationDays: defaultWorkspaceDuration,
			AutoAllocate: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
