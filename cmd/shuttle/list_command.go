package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var fromFileserver bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the project space or the fileserver share",
		Long: `List the project space or the fileserver share.

The project space is walked locally. The fileserver is listed through a
dtls job because the mount may not be reachable from login or compute
nodes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService()
			if err != nil {
				return err
			}

			var entries []string
			if fromFileserver {
				entries, err = service.ListFileserver(cmd.Context())
			} else {
				entries, err = service.ListProject(cmd.Context())
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			for _, entry := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), entry)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromFileserver, "fileserver", false, "List the fileserver share instead of the project space")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the listing as JSON")

	return cmd
}
