package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ftpxgo/ftpx"
)

// conflictPolicy maps the mutually exclusive --overwrite/--resume flags to a
// policy; neither flag means cancel on conflict.
func conflictPolicy(overwrite, resume bool) (ftpx.ConflictPolicy, error) {
	switch {
	case overwrite && resume:
		return ftpx.ConflictCancel, errors.New("--overwrite and --resume are mutually exclusive")
	case overwrite:
		return ftpx.ConflictOverwrite, nil
	case resume:
		return ftpx.ConflictResume, nil
	default:
		return ftpx.ConflictCancel, nil
	}
}

// progressPrinter writes an updating percentage to stderr.
func progressPrinter(label string) func(float64) {
	return func(pct float64) {
		fmt.Fprintf(os.Stderr, "\r%s %.1f%%", label, pct)
		if pct >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func newGetCmd(flags *rootFlags) *cobra.Command {
	var (
		overwrite bool
		resume    bool
		mirror    bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "get <remote-path> [local-dir]",
		Short: "Download a remote file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := conflictPolicy(overwrite, resume)
			if err != nil {
				return err
			}

			localDir := "."
			if len(args) == 2 {
				localDir = args[1]
			}

			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()

			req := ftpx.GetRequest{
				RemotePath:   args[0],
				LocalDir:     localDir,
				RecreateDirs: mirror,
				Conflict:     policy,
			}
			if !quiet {
				req.Progress = progressPrinter(args[0])
			}

			status, err := client.Get(cmd.Context(), req)
			if err != nil {
				return err
			}
			switch status {
			case ftpx.StatusCancelled:
				return fmt.Errorf("%s: local file exists; pass --overwrite or --resume", args[0])
			case ftpx.StatusSkipped:
				fmt.Fprintf(os.Stderr, "skipped %s (directory)\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing local file")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue a partial local file")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "recreate the remote directory structure locally")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

func newPutCmd(flags *rootFlags) *cobra.Command {
	var (
		overwrite bool
		resume    bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "put <local-file> [remote-dir]",
		Short: "Upload a local file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := conflictPolicy(overwrite, resume)
			if err != nil {
				return err
			}

			remoteDir := "/"
			if len(args) == 2 {
				remoteDir = args[1]
			}

			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()

			req := ftpx.PutRequest{
				LocalPath: args[0],
				RemoteDir: remoteDir,
				Conflict:  policy,
			}
			if !quiet {
				req.Progress = progressPrinter(args[0])
			}

			item, err := client.Put(cmd.Context(), req)
			if err != nil {
				if errors.Is(err, ftpx.ErrCancelled) {
					return fmt.Errorf("%s: remote file exists; pass --overwrite or --resume", args[0])
				}
				return err
			}
			fmt.Printf("uploaded %s (%s)\n", item.Path, item.Size)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing remote file")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue a partial remote file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}
