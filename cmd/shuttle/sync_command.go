package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shuttle/internal/transfer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var toFileserver bool
	var deleteExtra bool
	var overwriteNewer bool
	var assumeYes bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the fileserver share with the project space",
		Long: `Synchronize the fileserver share with the project space via dtrsync.

By default data flows from the fileserver into the project space and files
that are newer at the destination are left alone. Use --to-fileserver to
reverse the direction. --delete and --overwrite-newer discard data at the
destination and therefore ask for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService()
			if err != nil {
				return err
			}

			direction := transfer.DirectionFromFileserver
			if toFileserver {
				direction = transfer.DirectionToFileserver
			}

			confirmed := assumeYes
			if (deleteExtra || overwriteNewer) && !confirmed {
				confirmed, err = confirmDestructiveSync(cmd, deleteExtra, overwriteNewer)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			var progress func(string)
			if !quiet {
				out := cmd.OutOrStdout()
				progress = func(line string) {
					fmt.Fprintln(out, line)
				}
			}

			if err := service.Sync(cmd.Context(), transfer.SyncOptions{
				Direction:      direction,
				Delete:         deleteExtra,
				OverwriteNewer: overwriteNewer,
				Confirmed:      confirmed,
				Progress:       progress,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&toFileserver, "to-fileserver", false, "Sync from the project space to the fileserver")
	cmd.Flags().BoolVar(&deleteExtra, "delete", false, "Delete destination files that no longer exist at the source")
	cmd.Flags().BoolVar(&overwriteNewer, "overwrite-newer", false, "Overwrite destination files even when they are newer")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt for destructive options")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress dtrsync output")

	return cmd
}

func confirmDestructiveSync(cmd *cobra.Command, deleteExtra, overwriteNewer bool) (bool, error) {
	var actions []string
	if deleteExtra {
		actions = append(actions, "delete files")
	}
	if overwriteNewer {
		actions = append(actions, "overwrite newer files")
	}
	summary := strings.Join(actions, " and ")

	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isatty.IsTerminal(in.Fd()) {
		return false, fmt.Errorf("sync would %s at the destination; pass --yes to confirm", summary)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "This sync will %s at the destination. Continue? [y/N]: ", summary)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
