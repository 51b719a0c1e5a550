package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ftpxgo/ftpx"
)

func newLsCmd(flags *rootFlags) *cobra.Command {
	var (
		recurse bool
		depth   int
		filter  string
		long    bool
	)

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory, optionally recursing into subdirectories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()

			p := "/"
			if len(args) == 1 {
				p = args[0]
			}

			items, err := client.Traverse(cmd.Context(), p, ftpx.TraverseOptions{
				Recurse: recurse,
				Depth:   depth,
				Filter:  filter,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, it := range items {
				if it.ParseErr != nil {
					fmt.Fprintf(os.Stderr, "ftpx: unparsed entry in %s: %s\n", it.ParentPath, it.Raw)
					continue
				}
				if long {
					mod := ""
					if it.ModTime != nil {
						mod = it.ModTime.Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.Permissions, it.Size, mod, it.Path)
				} else {
					fmt.Fprintf(w, "%s\t%s\n", it.Size, it.Path)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recursive", "R", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "limit recursion depth (0 = unlimited)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "glob applied to directory names")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show permissions and modification times")
	return cmd
}

func newSizeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "size <path>",
		Short: "Print the size of a remote file in bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Quit()

			size, err := client.SizeOf(args[0])
			if err != nil {
				return err
			}
			if size < 0 {
				return fmt.Errorf("%s is a directory", args[0])
			}
			fmt.Println(size)
			return nil
		},
	}
}
