package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/ftpxgo/ftpx"
	"github.com/ftpxgo/ftpx/ftpconf"
)

type rootFlags struct {
	configPath string
	session    string
	url        string
	verbose    bool
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ftpx", "sessions.toml")
	}
	return "sessions.toml"
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:               "ftpx",
		Short:             "ftpx is a command line FTP/FTPS client",
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath(), "session config file")
	cmd.PersistentFlags().StringVarP(&flags.session, "session", "s", "", "named session from the config file")
	cmd.PersistentFlags().StringVarP(&flags.url, "url", "u", "", "connect to an ftp:// or ftps:// URL instead of a session")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log the FTP conversation")

	cmd.AddCommand(
		newLsCmd(flags),
		newSizeCmd(flags),
		newGetCmd(flags),
		newPutCmd(flags),
		newRmCmd(flags),
		newMvCmd(flags),
		newSessionsCmd(flags),
	)
	return cmd
}

// logger returns a colorized slog logger at debug level when verbose is set,
// nil otherwise.
func (f *rootFlags) logger() *slog.Logger {
	if !f.verbose {
		return nil
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug})
	return slog.New(handler)
}

// connect dials either the --url target or the named session from the
// config file. Callers own the returned client and must Quit it.
func (f *rootFlags) connect() (*ftpx.Client, error) {
	var opts []ftpx.Option
	if logger := f.logger(); logger != nil {
		opts = append(opts, ftpx.WithLogger(logger))
	}

	if f.url != "" {
		return ftpx.Connect(f.url, opts...)
	}

	store, err := ftpconf.Load(f.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no session config at %s; use --url or 'ftpx sessions add'", f.configPath)
		}
		return nil, err
	}
	return store.Connect(f.session, opts...)
}
