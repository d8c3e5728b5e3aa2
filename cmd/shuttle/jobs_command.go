package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shuttle/internal/ledger"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded transfer jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transfer jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureLedger()
			if err != nil {
				return err
			}
			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transfer jobs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Operation),
					string(job.Status),
					job.Source,
					job.Destination,
					humanize.Time(job.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Operation", "Status", "Source", "Destination", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id|uuid>",
		Short: "Show one transfer job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureLedger()
			if err != nil {
				return err
			}

			var job *ledger.Job
			if id, parseErr := strconv.ParseInt(args[0], 10, 64); parseErr == nil {
				job, err = store.GetByID(cmd.Context(), id)
			} else {
				job, err = store.GetByUUID(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, job)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %d\n", job.ID)
			fmt.Fprintf(out, "UUID:        %s\n", job.UUID)
			fmt.Fprintf(out, "Operation:   %s\n", job.Operation)
			fmt.Fprintf(out, "Status:      %s\n", job.Status)
			fmt.Fprintf(out, "Source:      %s\n", job.Source)
			fmt.Fprintf(out, "Destination: %s\n", job.Destination)
			fmt.Fprintf(out, "Created:     %s (%s)\n", job.CreatedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(job.CreatedAt))
			fmt.Fprintf(out, "Updated:     %s (%s)\n", job.UpdatedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(job.UpdatedAt))
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded transfer jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureLedger()
			if errors.Is(err, ledger.ErrSchemaMismatch) {
				// Incompatible database from an older release: start over.
				cfg, cfgErr := ctx.ensureConfig()
				if cfgErr != nil {
					return cfgErr
				}
				if rmErr := os.Remove(filepath.Join(cfg.Paths.LedgerDir, "ledger.db")); rmErr != nil {
					return fmt.Errorf("remove incompatible ledger database: %w", rmErr)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed incompatible ledger database.")
				return nil
			}
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared transfer job history.")
			return nil
		},
	}
	return cmd
}
