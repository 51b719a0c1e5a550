// Command ftpx is a small command-line front end for the ftpx library:
// listing, transfers, and remote file management against sessions defined
// in a TOML file or an ad-hoc URL.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ftpx:", err)
		os.Exit(1)
	}
}
