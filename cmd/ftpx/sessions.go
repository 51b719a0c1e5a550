package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ftpxgo/ftpx"
	"github.com/ftpxgo/ftpx/ftpconf"
)

func newSessionsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage named server sessions in the config file",
	}
	cmd.AddCommand(
		newSessionsListCmd(flags),
		newSessionsAddCmd(flags),
		newSessionsRmCmd(flags),
	)
	return cmd
}

// loadOrEmpty reads the config file, treating a missing file as empty so
// the first 'sessions add' works without setup.
func loadOrEmpty(path string) (*ftpx.Store, error) {
	store, err := ftpconf.Load(path)
	if os.IsNotExist(err) {
		return ftpx.NewStore(), nil
	}
	return store, err
}

func newSessionsListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadOrEmpty(flags.configPath)
			if err != nil {
				return err
			}
			for _, name := range store.Names() {
				s, _ := store.Get(name)
				tls := ""
				if s.UseTLS {
					tls = " (tls)"
				}
				fmt.Printf("%s\t%s%s\n", name, s.Endpoint, tls)
			}
			return nil
		},
	}
}

func newSessionsAddCmd(flags *rootFlags) *cobra.Command {
	var (
		user        string
		password    string
		useTLS      bool
		insecure    bool
		ascii       bool
		active      bool
		keepAlive   time.Duration
		timeout     time.Duration
		readTimeout time.Duration
		bandwidth   int64
		noVerify    bool
	)

	cmd := &cobra.Command{
		Use:   "add <name> <endpoint>",
		Short: "Add or replace a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadOrEmpty(flags.configPath)
			if err != nil {
				return err
			}

			s := ftpx.NewSession(args[0], args[1])
			s.User = user
			s.Password = password
			s.UseTLS = useTLS
			s.IgnoreCertErrors = insecure
			s.Binary = !ascii
			s.Passive = !active
			s.KeepAlive = keepAlive
			s.ConnectTimeout = timeout
			s.ReadTimeout = readTimeout
			s.BandwidthLimit = bandwidth

			if noVerify {
				store.Put(s)
			} else {
				client, err := store.Register(s)
				if err != nil {
					return fmt.Errorf("could not connect to %s: %w", s.Endpoint, err)
				}
				_ = client.Quit()
			}

			return ftpconf.Save(flags.configPath, store)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "login user (empty = anonymous)")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "use explicit TLS")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "use ASCII transfer mode")
	cmd.Flags().BoolVar(&active, "active", false, "use active data connections")
	cmd.Flags().DurationVar(&keepAlive, "keep-alive", 0, "NOOP keep-alive interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "connect and operation timeout")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "per-read timeout (defaults to --timeout)")
	cmd.Flags().Int64Var(&bandwidth, "bandwidth", 0, "transfer limit in bytes per second")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "store the session without connecting first")
	return cmd
}

func newSessionsRmCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ftpconf.Load(flags.configPath)
			if err != nil {
				return err
			}
			if _, ok := store.Get(args[0]); !ok {
				return fmt.Errorf("unknown session %q", args[0])
			}
			store.Remove(args[0])
			return ftpconf.Save(flags.configPath, store)
		},
	}
}
