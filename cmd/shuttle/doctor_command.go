package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"shuttle/internal/config"
	"shuttle/internal/datamover"
	"shuttle/internal/deps"
	"shuttle/internal/workspace"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the cluster tools and storage shuttle depends on",
		Long: `Check the cluster tools and storage shuttle depends on.

Verifies the datamover and workspace binaries, inspects the project space,
and summarizes the transfer job ledger. Exits non-zero when a required tool
is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := deps.CheckBinaries(toolRequirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Detail
				if status.Available {
					detail = "ok"
				}
				rows = append(rows, []string{status.Name, status.Command, yesNo(status.Available), detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "Available", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			fmt.Fprintf(out, "Fileserver mount: %s\n", cfg.Paths.FileserverMount)
			fmt.Fprintf(out, "Project space:    %s (%s)\n", cfg.Paths.ProjectSpace, describeSpace(cfg.Paths.ProjectSpace))

			if store, ledgerErr := ctx.ensureLedger(); ledgerErr != nil {
				fmt.Fprintf(out, "Ledger:           unavailable (%v)\n", ledgerErr)
			} else if summary, sumErr := store.Summary(cmd.Context()); sumErr != nil {
				fmt.Fprintf(out, "Ledger:           unavailable (%v)\n", sumErr)
			} else {
				fmt.Fprintf(out, "Ledger:           %d jobs (%d running, %d failed)\n",
					summary.Total, summary.Running, summary.Failed)
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tools are missing", len(missing))
			}
			fmt.Fprintln(out, "All required tools available.")
			return nil
		},
	}
	return cmd
}

// toolRequirements lists the external binaries shuttle shells out to. The
// workspace tools are optional because an explicitly configured cache dir
// works without them.
func toolRequirements(cfg *config.Config) []deps.Requirement {
	var reqs []deps.Requirement
	for _, tool := range datamover.Tools() {
		reqs = append(reqs, deps.Requirement{
			Name:        tool,
			Command:     cfg.TransferBinary(tool),
			Description: "datamover tool",
		})
	}
	workspaceOptional := cfg.Paths.CacheDir != ""
	for _, tool := range workspace.Tools() {
		reqs = append(reqs, deps.Requirement{
			Name:        tool,
			Command:     cfg.WorkspaceBinary(tool),
			Description: "workspace tool",
			Optional:    workspaceOptional,
		})
	}
	return reqs
}

func describeSpace(path string) string {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return "not reachable"
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	return fmt.Sprintf("%s free", humanize.IBytes(free))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
