package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shuttle/internal/fileutil"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Make a file available locally and print its path",
		Long: `Make a file available locally and print its path.

The file is looked up in the project space first, then in the scratch cache,
and finally fetched from the fileserver into the cache. A previously cached
copy is reused as-is even when the fileserver copy changed since; clear the
cache workspace to force a fresh fetch. With --output the resolved file is
additionally copied to the given local path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := ctx.ensureService()
			if err != nil {
				return err
			}

			path, err := service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := copyToOutput(cmd, path, outputPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outputPath)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Copy the resolved file to this local path")

	return cmd
}

// copyToOutput copies the resolved file to a caller-chosen location. The
// copy is local (the resolved path is always on a mounted filesystem), so it
// bypasses the datamover. A progress bar is shown on interactive terminals.
func copyToOutput(cmd *cobra.Command, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory; --output supports single files", src)
	}

	if stdout, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(stdout.Fd()) {
		return copyWithProgress(src, dst, info.Size())
	}
	return fileutil.CopyFileVerified(src, dst)
}

func copyWithProgress(src, dst string, size int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	bar := pb.Full.Start64(size)
	bar.Set(pb.Bytes, true)
	defer bar.Finish()

	if _, err := io.Copy(out, bar.NewProxyReader(in)); err != nil {
		return err
	}
	return out.Close()
}
