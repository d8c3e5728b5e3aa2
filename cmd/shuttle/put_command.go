package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path> [remote-name]",
		Short: "Copy a local file or directory to the fileserver",
		Long: `Copy a local file or directory to the fileserver via dtcp.

Relative paths are resolved inside the project space. The remote name
defaults to the base name of the source; pass a second argument to store the
copy under a different name or subdirectory on the share.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService()
			if err != nil {
				return err
			}

			remoteName := ""
			if len(args) == 2 {
				remoteName = args[1]
			}

			dst, err := service.Put(cmd.Context(), args[0], remoteName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}
	return cmd
}
