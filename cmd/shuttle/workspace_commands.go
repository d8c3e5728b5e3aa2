package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage the scratch workspaces backing the cache",
	}

	workspaceCmd.AddCommand(newWorkspaceListCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceAllocateCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceExtendCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceReleaseCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceCacheCommand(ctx))

	return workspaceCmd
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allocated workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.workspaceManager()
			if err != nil {
				return err
			}
			entries, err := manager.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workspaces allocated.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Name,
					entry.Path,
					entry.Filesystem,
					formatRemaining(entry.Remaining),
					strconv.Itoa(entry.Extensions),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Path", "Filesystem", "Remaining", "Extensions"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the listing as JSON")
	return cmd
}

func newWorkspaceAllocateCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "allocate [name]",
		Short: "Allocate a workspace",
		Long: `Allocate a workspace via ws_allocate and print its path.

Without a name the configured cache workspace is allocated. Allocating an
existing workspace name is harmless.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager, err := ctx.workspaceManager()
			if err != nil {
				return err
			}

			name := cfg.Workspace.Name
			if len(args) == 1 {
				name = args[0]
			}
			if days <= 0 {
				days = cfg.Workspace.DurationDays
			}

			path, err := manager.Allocate(cmd.Context(), name, days)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Allocation lifetime in days (defaults to the configured duration)")
	return cmd
}

func newWorkspaceExtendCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "extend <name>",
		Short: "Extend a workspace, consuming one extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager, err := ctx.workspaceManager()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Workspace.DurationDays
			}
			if err := manager.Extend(cmd.Context(), args[0], days); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extended %s by %d days\n", args[0], days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Extension in days (defaults to the configured duration)")
	return cmd
}

func newWorkspaceReleaseCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "release <name>",
		Short: "Release a workspace",
		Long: `Release a workspace via ws_release.

Released data becomes unreachable, including any cached files, so the
command asks for confirmation unless --yes is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.workspaceManager()
			if err != nil {
				return err
			}

			if !assumeYes {
				return fmt.Errorf("releasing %s makes its data unreachable; pass --yes to confirm", args[0])
			}
			if err := manager.Release(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm the release")
	return cmd
}

func newWorkspaceCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Print the cache directory, allocating it when needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService()
			if err != nil {
				return err
			}
			dir, err := service.CachePath(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	return cmd
}

func formatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return "expired"
	}
	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	if days == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}
