package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftpxgo/ftpx"
)

func newRmCmd(flags *rootFlags) *cobra.Command {
	var recurse bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a remote file or directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()

			opts := ftpx.RemoveOptions{Recurse: recurse}
			if !recurse {
				// Non-empty directories need a yes from the terminal.
				opts.Confirm = func(path string, children int) bool {
					fmt.Fprintf(os.Stderr, "%s has %d entries; delete recursively? [y/N] ", path, children)
					line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
					answer := strings.ToLower(strings.TrimSpace(line))
					return answer == "y" || answer == "yes"
				}
			}

			err = client.RemoveAll(cmd.Context(), args[0], opts)
			if errors.Is(err, ftpx.ErrDirNotEmpty) {
				return fmt.Errorf("%s: not removed: %w", args[0], err)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recursive", "r", false, "delete non-empty directories without asking")
	return cmd
}

func newMvCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Rename or move a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()
			return client.Rename(args[0], args[1])
		},
	}
}
