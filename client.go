package ftpx

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ftpxgo/ftpx/internal/ratelimit"
)

// Client is a connection to one FTP server.
//
// A Client issues one operation at a time: every command is serialized
// behind an internal mutex and blocks until the server's reply is read. Use
// one Client per goroutine.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	tlsConfig *tls.Config
	tlsMode   tlsMode

	// timeout bounds dialing and each read/write; readTimeout, when set,
	// overrides it for reads so a stalled server can be cut off on a
	// different budget than connection setup. idleTimeout is the NOOP
	// keep-alive interval (zero disables it).
	timeout     time.Duration
	readTimeout time.Duration
	idleTimeout time.Duration

	logger *slog.Logger
	dialer *net.Dialer

	host string
	port string

	// baseURL is the normalized ftp:// endpoint; Item paths produced by
	// listings and traversals are rooted here.
	baseURL string

	activeMode  bool
	disableEPSV bool
	asciiMode   bool

	limiter *ratelimit.Limiter

	// currentType caches the last TYPE argument so it is not re-sent.
	currentType string

	mu          sync.Mutex
	lastCommand time.Time

	quitChan       chan struct{}
	activeDataConn net.Conn
}

// Dial connects to an FTP server at "host:port" and reads the greeting. The
// caller still has to Login.
//
//	client, err := ftpx.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("invalid address: %w", err)}
	}

	c := &Client{
		host:    host,
		port:    port,
		baseURL: NormalizeURL("", addr),
		timeout: 30 * time.Second,
		tlsMode: tlsModeNone,
		dialer:  &net.Dialer{},
		// Discards everything; WithLogger replaces it.
		logger: slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	c.dialer.Timeout = c.timeout

	if err := c.connect(); err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	c.lastCommand = time.Now()
	c.startKeepAlive()

	return c, nil
}

// Connect dials a URL of the form scheme://[user:password@]host[:port][/path]
// and logs in. Schemes: "ftp" (plain, port 21), "ftps" (implicit TLS, port
// 990), "ftp+explicit" (AUTH TLS upgrade, port 21). Missing credentials mean
// an anonymous login; a path, when present, becomes the working directory.
func Connect(urlStr string, options ...Option) (*Client, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	host := u.Hostname()
	port := u.Port()
	var opts []Option

	switch strings.ToLower(u.Scheme) {
	case "ftp":
		if port == "" {
			port = "21"
		}
	case "ftps":
		if port == "" {
			port = "990"
		}
		// Implicit TLS with server verification. A custom TLS config (e.g.
		// self-signed certs) needs Dial with WithImplicitTLS instead.
		opts = append(opts, WithImplicitTLS(&tls.Config{ServerName: host}))
	case "ftp+explicit":
		if port == "" {
			port = "21"
		}
		opts = append(opts, WithExplicitTLS(&tls.Config{ServerName: host}))
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	opts = append(opts, options...)

	c, err := Dial(net.JoinHostPort(host, port), opts...)
	if err != nil {
		return nil, err
	}

	user := u.User.Username()
	pass, hasPass := u.User.Password()
	if user == "" {
		user = "anonymous"
		pass = "anonymous@"
	} else if !hasPass {
		pass = ""
	}

	if err := c.Login(user, pass); err != nil {
		_ = c.Quit()
		return nil, err
	}

	if u.Path != "" && u.Path != "/" {
		if err := c.ChangeDir(u.Path); err != nil {
			_ = c.Quit()
			return nil, fmt.Errorf("failed to change directory: %w", err)
		}
	}

	return c, nil
}

// connect performs the TCP (and TLS, when configured) handshake and consumes
// the 220 greeting.
func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	c.logger.Debug("connecting to ftp server", "addr", addr, "tls_mode", c.tlsMode)

	if c.tlsMode == tlsModeImplicit {
		conn, err := c.dialer.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		tlsConn := tls.Client(conn, c.tlsConfig)
		if c.timeout > 0 {
			if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
				conn.Close()
				return fmt.Errorf("failed to set deadline: %w", err)
			}
		}
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return fmt.Errorf("TLS handshake failed: %w", err)
		}
		c.logger.Debug("TLS handshake complete", "mode", "implicit")
		c.conn = tlsConn
	} else {
		conn, err := c.dialer.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		c.conn = conn
	}

	c.reader = bufio.NewReader(c.conn)

	if rt := c.effectiveReadTimeout(); rt > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(rt)); err != nil {
			c.conn.Close()
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	c.logger.Debug("ftp greeting", "code", resp.Code, "message", resp.Message)

	if resp.Code != 220 {
		c.conn.Close()
		return &ProtocolError{Command: "CONNECT", Response: resp.Message, Code: resp.Code}
	}

	if c.tlsMode == tlsModeExplicit {
		if err := c.upgradeToTLS(); err != nil {
			c.conn.Close()
			return err
		}
	}

	return nil
}

// effectiveReadTimeout is the deadline budget pushed before reads. It is the
// per-read timeout when one is configured, the general timeout otherwise.
func (c *Client) effectiveReadTimeout() time.Duration {
	if c.readTimeout > 0 {
		return c.readTimeout
	}
	return c.timeout
}

// upgradeToTLS performs the AUTH TLS / PBSZ 0 / PROT P sequence that secures
// both the control and data channels.
func (c *Client) upgradeToTLS() error {
	resp, err := c.sendCommand("AUTH", "TLS")
	if err != nil {
		return fmt.Errorf("AUTH TLS failed: %w", err)
	}
	if resp.Code != 234 {
		return &ProtocolError{Command: "AUTH TLS", Response: resp.Message, Code: resp.Code}
	}

	c.logger.Debug("starting TLS handshake", "mode", "explicit")
	tlsConn := tls.Client(c.conn, c.tlsConfig)
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("failed to set deadline: %w", err)
		}
	}
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake failed: %w", err)
	}
	c.logger.Debug("TLS handshake complete", "mode", "explicit")

	c.conn = tlsConn
	c.reader = bufio.NewReader(c.conn)

	if _, err := c.expectCode(200, "PBSZ", "0"); err != nil {
		return fmt.Errorf("PBSZ failed: %w", err)
	}
	if _, err := c.expectCode(200, "PROT", "P"); err != nil {
		return fmt.Errorf("PROT failed: %w", err)
	}

	return nil
}

// Login authenticates with the server. A rejected credential is reported as
// a *ConnectionError wrapping the server's refusal.
func (c *Client) Login(username, password string) error {
	resp, err := c.sendCommand("USER", username)
	if err != nil {
		return err
	}

	// 230 straight away means no password is required.
	if resp.Code == 230 {
		return nil
	}
	if resp.Code != 331 {
		return &ConnectionError{
			Addr: net.JoinHostPort(c.host, c.port),
			Err:  &ProtocolError{Command: "USER", Response: resp.Message, Code: resp.Code},
		}
	}

	resp, err = c.sendCommand("PASS", password)
	if err != nil {
		return err
	}
	if resp.Code != 230 {
		return &ConnectionError{
			Addr: net.JoinHostPort(c.host, c.port),
			Err:  &ProtocolError{Command: "PASS", Response: resp.Message, Code: resp.Code},
		}
	}

	return nil
}

// Quit sends QUIT and closes the control connection. An in-flight transfer
// is aborted by closing its data connection.
func (c *Client) Quit() error {
	if c.conn == nil {
		return nil
	}

	if c.quitChan != nil {
		close(c.quitChan)
	}

	c.mu.Lock()
	if c.activeDataConn != nil {
		c.activeDataConn.Close()
		c.activeDataConn = nil
	}
	c.mu.Unlock()

	// The reply does not matter at this point.
	_, _ = c.sendCommand("QUIT")

	return c.conn.Close()
}

// startKeepAlive spawns the NOOP loop when an idle timeout is configured.
// The loop skips ticks while a data transfer is running, since the control
// channel must stay quiet until the completion reply.
func (c *Client) startKeepAlive() {
	if c.idleTimeout == 0 {
		return
	}

	c.quitChan = make(chan struct{})
	ticker := time.NewTicker(c.idleTimeout / 2)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.mu.Lock()
				transferring := c.activeDataConn != nil
				last := c.lastCommand
				c.mu.Unlock()
				if transferring {
					continue
				}
				if time.Since(last) >= c.idleTimeout {
					c.logger.Debug("sending keep-alive NOOP")
					_ = c.Noop()
				}
			case <-c.quitChan:
				return
			}
		}
	}()
}

// Type sets the transfer type ("A" or "I"), skipping the command when the
// type is already current.
func (c *Client) Type(transferType string) error {
	if c.currentType == transferType {
		return nil
	}
	if _, err := c.expectCode(200, "TYPE", transferType); err != nil {
		return err
	}
	c.currentType = transferType
	return nil
}

// transferType returns the TYPE argument for data transfers, honoring the
// ASCII-mode option.
func (c *Client) transferType() string {
	if c.asciiMode {
		return "A"
	}
	return "I"
}

// Noop sends NOOP, useful as a manual keep-alive.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}
