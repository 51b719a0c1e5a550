package ftpx

import (
	"crypto/tls"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var (
	// pasvRe captures the six comma-separated numbers of a 227 reply.
	pasvRe = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

	// epsvRe captures the port of a 229 reply ("(|||6446|)").
	epsvRe = regexp.MustCompile(`\(\|\|\|(\d+)\|\)`)
)

// parsePASV extracts the data endpoint from a 227 reply. The reply encodes
// the port as two bytes: p1*256 + p2.
func parsePASV(response string) (string, error) {
	m := pasvRe.FindStringSubmatch(response)
	if len(m) != 7 {
		return "", fmt.Errorf("invalid PASV response: %s", response)
	}

	var octets [4]int
	for i := range octets {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("invalid PASV IP part: %s", m[i+1])
		}
		octets[i] = v
	}
	host := fmt.Sprintf("%d.%d.%d.%d", octets[0], octets[1], octets[2], octets[3])
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address from PASV: %s", host)
	}

	p1, err1 := strconv.Atoi(m[5])
	p2, err2 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", fmt.Errorf("invalid PASV port parts: %s, %s", m[5], m[6])
	}

	return net.JoinHostPort(host, strconv.Itoa(p1*256+p2)), nil
}

// parseEPSV extracts the port string from a 229 reply. The host is always
// the control connection's host.
func parseEPSV(response string) (string, error) {
	m := epsvRe.FindStringSubmatch(response)
	if len(m) != 2 {
		return "", fmt.Errorf("invalid EPSV response: %s", response)
	}
	port, err := strconv.Atoi(m[1])
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid EPSV port: %s", m[1])
	}
	return m[1], nil
}

// formatPORT renders a local IPv4 endpoint in the h1,h2,h3,h4,p1,p2 form the
// PORT command wants.
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	if ip = ip.To4(); ip == nil {
		return "", fmt.Errorf("PORT requires IPv4 address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}

	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port/256, port%256), nil
}

// formatEPRT renders an endpoint as |proto|host|port| with proto 1 for IPv4
// and 2 for IPv6.
func formatEPRT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", host)
	}
	proto := 2
	if ip.To4() != nil {
		proto = 1
	}

	return fmt.Sprintf("|%d|%s|%s|", proto, host, portStr), nil
}

// resolveDataAddr substitutes the control host when the server advertises
// 0.0.0.0, which NATed servers commonly do.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return pasvAddr
}

// openDataConn establishes a data connection in the configured mode.
func (c *Client) openDataConn() (net.Conn, error) {
	if c.activeMode {
		return c.openActiveDataConn()
	}
	return c.openPassiveDataConn()
}

// openActiveDataConn listens locally and instructs the server to connect
// back (PORT for IPv4, EPRT for IPv6).
func (c *Client) openActiveDataConn() (net.Conn, error) {
	localAddr := c.conn.LocalAddr().String()
	host, _, err := net.SplitHostPort(localAddr)
	if err != nil {
		host = "127.0.0.1"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		// The control interface may not allow listening; fall back to any.
		listener, err = net.Listen("tcp", ":0")
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
	}

	addr := listener.Addr().String()
	listenHost, _, err := net.SplitHostPort(addr)
	if err != nil {
		listener.Close()
		return nil, err
	}
	ip := net.ParseIP(listenHost)
	if ip == nil {
		listener.Close()
		return nil, fmt.Errorf("failed to parse local IP: %s", listenHost)
	}

	var cmd, arg string
	if ip.To4() == nil {
		cmd = "EPRT"
		arg, err = formatEPRT(addr)
	} else {
		cmd = "PORT"
		arg, err = formatPORT(addr)
	}
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to format %s command: %w", cmd, err)
	}

	resp, err := c.sendCommand(cmd, arg)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("%s failed: %w", cmd, err)
	}
	if !resp.Is2xx() {
		listener.Close()
		return nil, &ProtocolError{Command: cmd, Response: resp.Message, Code: resp.Code}
	}

	// The server only connects after the transfer command goes out, so the
	// accept happens lazily on first Read or Write.
	return &activeDataConn{
		listener:  listener,
		tlsConfig: c.tlsConfig,
		timeout:   c.timeout,
	}, nil
}

// activeDataConn is a net.Conn that accepts the server's inbound connection
// on first use.
type activeDataConn struct {
	listener  net.Listener
	conn      net.Conn
	tlsConfig *tls.Config
	timeout   time.Duration
}

func (a *activeDataConn) accept() error {
	if a.timeout > 0 {
		if l, ok := a.listener.(*net.TCPListener); ok {
			_ = l.SetDeadline(time.Now().Add(a.timeout))
		}
	}
	conn, err := a.listener.Accept()
	if err != nil {
		return err
	}
	a.conn = conn

	if a.tlsConfig != nil {
		tlsConn := tls.Server(a.conn, a.tlsConfig)
		if a.timeout > 0 {
			_ = a.conn.SetDeadline(time.Now().Add(a.timeout))
		}
		if err := tlsConn.Handshake(); err != nil {
			a.conn.Close()
			return err
		}
		a.conn = tlsConn
	}
	return nil
}

func (a *activeDataConn) Read(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Read(p)
}

func (a *activeDataConn) Write(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Write(p)
}

func (a *activeDataConn) Close() error {
	var connErr, listenErr error
	if a.conn != nil {
		connErr = a.conn.Close()
	}
	if a.listener != nil {
		listenErr = a.listener.Close()
	}
	if connErr != nil {
		return connErr
	}
	return listenErr
}

func (a *activeDataConn) LocalAddr() net.Addr {
	if a.conn != nil {
		return a.conn.LocalAddr()
	}
	return a.listener.Addr()
}

func (a *activeDataConn) RemoteAddr() net.Addr {
	if a.conn != nil {
		return a.conn.RemoteAddr()
	}
	return nil
}

func (a *activeDataConn) SetDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetReadDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetReadDeadline(t)
	}
	return nil
}

func (a *activeDataConn) SetWriteDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetWriteDeadline(t)
	}
	return nil
}

// openPassiveDataConn asks the server for a data endpoint, preferring EPSV
// and falling back to PASV. A 502 on EPSV disables it for the rest of the
// connection.
func (c *Client) openPassiveDataConn() (net.Conn, error) {
	var addr string

	if !c.disableEPSV {
		if resp, err := c.sendCommand("EPSV"); err == nil {
			switch {
			case resp.Code == 502:
				c.disableEPSV = true
			case resp.Is2xx():
				if port, perr := parseEPSV(resp.String()); perr == nil {
					addr = net.JoinHostPort(c.host, port)
				}
			}
		}
	}

	if addr == "" {
		resp, err := c.sendCommand("PASV")
		if err != nil {
			return nil, fmt.Errorf("PASV failed: %w", err)
		}
		if !resp.Is2xx() {
			return nil, &ProtocolError{Command: "PASV", Response: resp.Message, Code: resp.Code}
		}
		if addr, err = parsePASV(resp.String()); err != nil {
			return nil, err
		}
		addr = resolveDataAddr(addr, c.host)
	}

	dataConn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data port: %w", err)
	}

	if c.tlsConfig != nil {
		tlsConn := tls.Client(dataConn, c.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			dataConn.Close()
			return nil, fmt.Errorf("data connection TLS handshake failed: %w", err)
		}
		dataConn = tlsConn
	}

	if rt := c.effectiveReadTimeout(); rt > 0 {
		return &deadlineConn{Conn: dataConn, timeout: rt}, nil
	}
	return dataConn, nil
}

// cmdDataConn opens a data connection and sends the transfer command over
// the control channel. The caller streams over the returned connection and
// must hand it to finishDataConn afterwards.
func (c *Client) cmdDataConn(cmd string, args ...string) (net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.activeDataConn = dataConn
	c.mu.Unlock()

	abort := func() {
		dataConn.Close()
		c.mu.Lock()
		c.activeDataConn = nil
		c.mu.Unlock()
	}

	resp, err := c.sendCommand(cmd, args...)
	if err != nil {
		abort()
		return nil, err
	}

	// Transfer commands open with a preliminary 1xx, or a direct 2xx on some
	// servers. Anything else is a refusal.
	if resp.Code < 100 || resp.Code >= 300 {
		abort()
		return nil, &ProtocolError{Command: cmd, Response: resp.Message, Code: resp.Code}
	}

	return dataConn, nil
}

// finishDataConn closes the data connection and collects the transfer's
// completion reply (usually 226) from the control channel.
func (c *Client) finishDataConn(dataConn net.Conn) error {
	c.mu.Lock()
	c.activeDataConn = nil
	c.mu.Unlock()

	if err := dataConn.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}

	if rt := c.effectiveReadTimeout(); rt > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(rt)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		return fmt.Errorf("failed to read completion response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("ftp data transfer complete", "code", resp.Code, "message", resp.Message)
	}

	if !resp.Is2xx() {
		return &ProtocolError{Command: "TRANSFER", Response: resp.Message, Code: resp.Code}
	}
	return nil
}
