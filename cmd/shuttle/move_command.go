package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <local-path> [remote-name]",
		Short: "Move a file or directory to the fileserver",
		Long: `Move a file or directory to the fileserver via dtmv.

Like put, but the source is removed once the datamover job finished.
Relative paths are resolved inside the project space.`,
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

			dst, err := service.Move(cmd.Context(), args[0], remoteName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}
	return cmd
}
