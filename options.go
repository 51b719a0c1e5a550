package ftpx

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/ftpxgo/ftpx/internal/ratelimit"
)

// Option configures a Client at Dial time.
type Option func(*Client) error

// WithTimeout bounds connection establishment and every subsequent read and
// write. The default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithReadTimeout bounds each individual read separately from the general
// timeout, so a stalled control or data channel is abandoned on its own
// budget. Zero falls back to WithTimeout's value.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.readTimeout = timeout
		return nil
	}
}

// WithIdleTimeout enables keep-alive: when the control channel has been idle
// for this long, a NOOP is sent automatically. Zero disables keep-alive.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.idleTimeout = timeout
		return nil
	}
}

// WithExplicitTLS upgrades the connection with AUTH TLS after the plain-text
// greeting on the standard port. This is the usual FTPS mode.
//
// The config should carry ServerName for certificate validation; a session
// cache is added when absent so data connections can resume the TLS session.
func WithExplicitTLS(config *tls.Config) Option {
	return func(c *Client) error {
		if c.tlsMode == tlsModeImplicit {
			return fmt.Errorf("explicit TLS cannot be combined with implicit TLS")
		}
		if config == nil {
			config = &tls.Config{}
		}
		if config.ClientSessionCache == nil {
			config.ClientSessionCache = tls.NewLRUClientSessionCache(0)
		}
		c.tlsConfig = config
		c.tlsMode = tlsModeExplicit
		return nil
	}
}

// WithImplicitTLS makes the very first byte of the connection TLS, the
// legacy FTPS mode on port 990.
//
// The config should carry ServerName for certificate validation; a session
// cache is added when absent so data connections can resume the TLS session.
func WithImplicitTLS(config *tls.Config) Option {
	return func(c *Client) error {
		if c.tlsMode == tlsModeExplicit {
			return fmt.Errorf("implicit TLS cannot be combined with explicit TLS")
		}
		if config == nil {
			config = &tls.Config{}
		}
		if config.ClientSessionCache == nil {
			config.ClientSessionCache = tls.NewLRUClientSessionCache(0)
		}
		c.tlsConfig = config
		c.tlsMode = tlsModeImplicit
		return nil
	}
}

// WithLogger logs every command and reply at debug level.
//
//	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
//	client, _ := ftpx.Dial("ftp.example.com:21", ftpx.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithDialer substitutes the net.Dialer used for control and data
// connections, e.g. to pin a source address.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		c.dialer = dialer
		return nil
	}
}

// WithActiveMode uses PORT/EPRT data connections: the client listens and the
// server dials back. Rarely works across NAT; passive is the default for a
// reason.
func WithActiveMode() Option {
	return func(c *Client) error {
		c.activeMode = true
		return nil
	}
}

// WithDisableEPSV goes straight to PASV without probing EPSV first, for
// servers or firewalls that mishandle EPSV.
func WithDisableEPSV() Option {
	return func(c *Client) error {
		c.disableEPSV = true
		return nil
	}
}

// WithASCIIMode makes transfers use TYPE A instead of the default TYPE I.
// Binary mode is correct for almost every workload; ASCII mode exists for
// servers that translate line endings on text files.
func WithASCIIMode() Option {
	return func(c *Client) error {
		c.asciiMode = true
		return nil
	}
}

// WithBandwidthLimit throttles data connections to the given number of bytes
// per second using a token bucket, for uploads and downloads alike. Zero or
// negative disables throttling.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *Client) error {
		c.limiter = ratelimit.New(bytesPerSecond)
		return nil
	}
}

// tlsMode selects how (and whether) the control connection is secured.
type tlsMode int

const (
	tlsModeNone tlsMode = iota
	tlsModeExplicit
	tlsModeImplicit
)
