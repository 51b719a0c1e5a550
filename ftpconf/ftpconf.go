// Package ftpconf loads and saves session profiles from a TOML file, so
// command-line tools and scheduled jobs can share named server definitions.
package ftpconf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ftpxgo/ftpx"
)

// Config is the on-disk shape of a session file.
type Config struct {
	Sessions []SessionConfig `toml:"sessions"`
}

// SessionConfig is one named server profile.
type SessionConfig struct {
	Name             string `toml:"name"`
	Endpoint         string `toml:"endpoint"`
	User             string `toml:"user"`
	Password         string `toml:"password"`
	UseTLS           bool   `toml:"use_tls"`
	IgnoreCertErrors bool   `toml:"ignore_cert_errors"`
	KeepAliveSeconds int    `toml:"keep_alive_seconds"`
	ASCII            bool   `toml:"ascii"`
	ActiveMode       bool   `toml:"active_mode"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`
	BandwidthLimit   int64  `toml:"bandwidth_limit"` // bytes per second
}

// Load reads a TOML session file and returns a populated store.
func Load(path string) (*ftpx.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	store := ftpx.NewStore()
	for i, sc := range cfg.Sessions {
		if sc.Endpoint == "" {
			return nil, fmt.Errorf("%s: session %d (%q) has no endpoint", path, i+1, sc.Name)
		}
		store.Put(sc.Session())
	}
	return store, nil
}

// Save writes the store's sessions to a TOML file, creating parent
// directories as needed.
func Save(path string, store *ftpx.Store) error {
	cfg := Config{}
	for _, name := range store.Names() {
		s, ok := store.Get(name)
		if !ok {
			continue
		}
		cfg.Sessions = append(cfg.Sessions, fromSession(s))
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// Session converts the file entry into a live profile.
func (sc SessionConfig) Session() *ftpx.Session {
	s := ftpx.NewSession(sc.Name, sc.Endpoint)
	s.User = sc.User
	s.Password = sc.Password
	s.UseTLS = sc.UseTLS
	s.IgnoreCertErrors = sc.IgnoreCertErrors
	s.KeepAlive = time.Duration(sc.KeepAliveSeconds) * time.Second
	s.Binary = !sc.ASCII
	s.Passive = !sc.ActiveMode
	s.ConnectTimeout = time.Duration(sc.TimeoutSeconds) * time.Second
	s.ReadTimeout = time.Duration(sc.ReadTimeoutSecs) * time.Second
	s.BandwidthLimit = sc.BandwidthLimit
	return s
}

func fromSession(s *ftpx.Session) SessionConfig {
	return SessionConfig{
		Name:             s.Name,
		Endpoint:         s.Endpoint,
		User:             s.User,
		Password:         s.Password,
		UseTLS:           s.UseTLS,
		IgnoreCertErrors: s.IgnoreCertErrors,
		KeepAliveSeconds: int(s.KeepAlive / time.Second),
		ASCII:            !s.Binary,
		ActiveMode:       !s.Passive,
		TimeoutSeconds:   int(s.ConnectTimeout / time.Second),
		ReadTimeoutSecs:  int(s.ReadTimeout / time.Second),
		BandwidthLimit:   s.BandwidthLimit,
	}
}
