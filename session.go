package ftpx

import (
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultSessionName is the name under which an unnamed session is stored.
const DefaultSessionName = "Default"

// Session is a named, reusable connection profile. It carries everything
// needed to reach a server plus the transfer knobs that should apply to
// every connection made from it.
type Session struct {
	// Name identifies the session in a Store. Empty means DefaultSessionName.
	Name string

	// Endpoint is the server address as host or host:port; a missing port
	// defaults to 21 (990 when UseTLS selects implicit mode is not offered
	// here; use an explicit port for non-standard setups).
	Endpoint string

	// User and Password are the login credentials. An empty User logs in
	// anonymously.
	User     string
	Password string

	// UseTLS upgrades the control and data connections with explicit TLS
	// (AUTH TLS) after connecting.
	UseTLS bool

	// IgnoreCertErrors skips server certificate verification. Only honored
	// when UseTLS is set.
	IgnoreCertErrors bool

	// KeepAlive is the idle interval after which a NOOP is sent. Zero
	// disables keep-alive.
	KeepAlive time.Duration

	// Binary selects image (TYPE I) transfers. The zero value of a freshly
	// composed Session is false, so constructors should set it; NewSession
	// does.
	Binary bool

	// Passive selects passive data connections. NewSession sets it; active
	// mode is the exception, not the rule.
	Passive bool

	// ConnectTimeout bounds connection establishment and per-operation
	// deadlines. Zero means the client default.
	ConnectTimeout time.Duration

	// ReadTimeout bounds each individual read on the control and data
	// channels. Zero falls back to ConnectTimeout.
	ReadTimeout time.Duration

	// BandwidthLimit throttles transfers to this many bytes per second.
	// Zero means unlimited.
	BandwidthLimit int64
}

// NewSession returns a session with the customary defaults: binary transfers,
// passive mode, no TLS.
func NewSession(name, endpoint string) *Session {
	if name == "" {
		name = DefaultSessionName
	}
	return &Session{
		Name:     name,
		Endpoint: endpoint,
		Binary:   true,
		Passive:  true,
	}
}

// addr returns the dialable host:port for the session endpoint.
func (s *Session) addr() (string, error) {
	ep := strings.TrimSpace(s.Endpoint)
	ep = strings.TrimPrefix(ep, "ftp://")
	ep = strings.TrimSuffix(ep, "/")
	if ep == "" {
		return "", fmt.Errorf("ftpx: session %q has no endpoint", s.Name)
	}
	if _, _, err := net.SplitHostPort(ep); err != nil {
		ep = net.JoinHostPort(ep, "21")
	}
	return ep, nil
}

// options translates the session profile into client options.
func (s *Session) options() []Option {
	var opts []Option
	if s.ConnectTimeout > 0 {
		opts = append(opts, WithTimeout(s.ConnectTimeout))
	}
	if s.ReadTimeout > 0 {
		opts = append(opts, WithReadTimeout(s.ReadTimeout))
	}
	if s.KeepAlive > 0 {
		opts = append(opts, WithIdleTimeout(s.KeepAlive))
	}
	if s.UseTLS {
		host := s.Endpoint
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		opts = append(opts, WithExplicitTLS(&tls.Config{
			ServerName:         host,
			InsecureSkipVerify: s.IgnoreCertErrors,
		}))
	}
	if !s.Passive {
		opts = append(opts, WithActiveMode())
	}
	if !s.Binary {
		opts = append(opts, WithASCIIMode())
	}
	if s.BandwidthLimit > 0 {
		opts = append(opts, WithBandwidthLimit(s.BandwidthLimit))
	}
	return opts
}

// Dial connects and logs in using the session profile.
func (s *Session) Dial(extra ...Option) (*Client, error) {
	addr, err := s.addr()
	if err != nil {
		return nil, err
	}

	c, err := Dial(addr, append(s.options(), extra...)...)
	if err != nil {
		return nil, err
	}

	user, pass := s.User, s.Password
	if user == "" {
		user = "anonymous"
		pass = "anonymous@"
	}
	if err := c.Login(user, pass); err != nil {
		_ = c.Quit()
		return nil, err
	}
	return c, nil
}

// Store is an in-memory registry of named sessions, safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put adds or replaces a session under its name.
func (st *Store) Put(s *Session) {
	name := s.Name
	if name == "" {
		name = DefaultSessionName
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[name] = s
}

// Get returns the named session, or the default session for an empty name.
func (st *Store) Get(name string) (*Session, bool) {
	if name == "" {
		name = DefaultSessionName
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[name]
	return s, ok
}

// Remove deletes the named session. Removing an unknown name is a no-op.
func (st *Store) Remove(name string) {
	if name == "" {
		name = DefaultSessionName
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, name)
}

// Names returns the stored session names in sorted order.
func (st *Store) Names() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	names := make([]string, 0, len(st.sessions))
	for name := range st.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect dials the named session.
func (st *Store) Connect(name string, extra ...Option) (*Client, error) {
	s, ok := st.Get(name)
	if !ok {
		return nil, fmt.Errorf("ftpx: unknown session %q", name)
	}
	return s.Dial(extra...)
}

// Register validates a session by dialing and logging in with it, then
// stores it under its name, replacing any previous profile with that name.
// A session that cannot connect is not stored. The caller owns the returned
// client and must Quit it.
func (st *Store) Register(s *Session, extra ...Option) (*Client, error) {
	c, err := s.Dial(extra...)
	if err != nil {
		return nil, err
	}
	st.Put(s)
	return c, nil
}
