package ftpx

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"
)

// mockServer scripts control-channel responses for a single client
// connection. Commands with no handler get a minimal sane default so tests
// only script what they assert on.
type mockServer struct {
	listener     net.Listener
	addr         string
	handlers     map[string]func(conn *textproto.Conn, args string)
	dataListener net.Listener
	received     []string
	connCh       chan net.Conn
	done         chan struct{}
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &mockServer{
		listener: l,
		addr:     l.Addr().String(),
		handlers: make(map[string]func(*textproto.Conn, string)),
		connCh:   make(chan net.Conn, 1),
		done:     make(chan struct{}),
	}
}

// withData attaches a passive data listener and wires the EPSV handler to
// advertise it.
func (s *mockServer) withData(t *testing.T) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s.dataListener = l
	_, port, _ := net.SplitHostPort(l.Addr().String())
	s.handlers["EPSV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("229 Entering Extended Passive Mode (|||%s|)", port)
	}
}

// sendData accepts one data connection, writes payload, and closes it.
func (s *mockServer) sendData(t *testing.T, payload string) {
	t.Helper()
	dconn, err := s.dataListener.Accept()
	if err != nil {
		t.Errorf("data accept: %v", err)
		return
	}
	if payload != "" {
		_, _ = dconn.Write([]byte(payload))
	}
	dconn.Close()
}

// recvData accepts one data connection and drains it.
func (s *mockServer) recvData(t *testing.T) []byte {
	t.Helper()
	dconn, err := s.dataListener.Accept()
	if err != nil {
		t.Errorf("data accept: %v", err)
		return nil
	}
	defer dconn.Close()
	var buf strings.Builder
	tmp := make([]byte, 4096)
	for {
		n, err := dconn.Read(tmp)
		buf.Write(tmp[:n])
		if err != nil {
			break
		}
	}
	return []byte(buf.String())
}

func (s *mockServer) start() {
	go func() {
		defer close(s.done)
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		s.connCh <- conn

		fmt.Fprintf(conn, "220 Service ready\r\n")

		textConn := textproto.NewConn(conn)
		defer textConn.Close()

		for {
			line, err := textConn.ReadLine()
			if err != nil {
				return
			}

			cmd, args, _ := strings.Cut(line, " ")
			cmd = strings.ToUpper(cmd)
			s.received = append(s.received, line)

			if handler, ok := s.handlers[cmd]; ok {
				handler(textConn, args)
				continue
			}

			switch cmd {
			case "USER":
				_ = textConn.PrintfLine("331 User name okay, need password.")
			case "PASS":
				_ = textConn.PrintfLine("230 User logged in, proceed.")
			case "TYPE", "NOOP":
				_ = textConn.PrintfLine("200 Command okay.")
			case "PWD":
				_ = textConn.PrintfLine(`257 "/" is the current directory.`)
			case "QUIT":
				_ = textConn.PrintfLine("221 Service closing control connection.")
				return
			default:
				_ = textConn.PrintfLine("502 Command not implemented.")
			}
		}
	}()
}

// stop shuts the server down. The control connection is closed from this
// side so the handler goroutine unblocks even when the client never sent
// QUIT (client Quit may run later, as a test cleanup).
func (s *mockServer) stop() {
	s.listener.Close()
	if s.dataListener != nil {
		s.dataListener.Close()
	}
	select {
	case conn := <-s.connCh:
		conn.Close()
	default:
	}
	<-s.done
}

// commands returns the received command verbs in order.
func (s *mockServer) commands() []string {
	out := make([]string, 0, len(s.received))
	for _, line := range s.received {
		verb, _, _ := strings.Cut(line, " ")
		out = append(out, strings.ToUpper(verb))
	}
	return out
}

func dialTestClient(t *testing.T, ms *mockServer) *Client {
	t.Helper()
	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Quit() })
	if err := c.Login("anonymous", "anonymous@"); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDialRejectsBadAddress(t *testing.T) {
	t.Parallel()
	_, err := Dial("no-port-here")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.handlers["PASS"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("530 Login incorrect.")
	}
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Quit() }()

	err = c.Login("user", "wrong")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) || protoErr.Code != 530 {
		t.Errorf("expected wrapped 530 ProtocolError, got %v", err)
	}
}

func TestEPSVFallbackToPASV(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)

	pasvL, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ms.dataListener = pasvL

	_, portStr, _ := net.SplitHostPort(pasvL.Addr().String())
	port := 0
	_, _ = fmt.Sscanf(portStr, "%d", &port)
	pasvResp := fmt.Sprintf("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256)

	ms.handlers["EPSV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("502 Command not implemented.")
	}
	ms.handlers["PASV"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("%s", pasvResp)
	}
	ms.handlers["LIST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Opening data connection.")
		ms.sendData(t, "")
		_ = c.PrintfLine("226 Closing data connection.")
	}

	ms.start()
	defer ms.stop()

	c := dialTestClient(t, ms)

	if _, err := c.List("/"); err != nil {
		t.Errorf("first List: %v", err)
	}
	// The 502 must disable EPSV for the rest of the connection.
	if _, err := c.List("/"); err != nil {
		t.Errorf("second List: %v", err)
	}

	epsvCount := 0
	for _, cmd := range ms.commands() {
		if cmd == "EPSV" {
			epsvCount++
		}
	}
	if epsvCount != 1 {
		t.Errorf("expected exactly 1 EPSV, got %d (commands: %v)", epsvCount, ms.commands())
	}
}

func TestListParsesUnixListing(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.withData(t)
	ms.handlers["LIST"] = func(c *textproto.Conn, args string) {
		_ = c.PrintfLine("150 Opening data connection.")
		ms.sendData(t, "drwxr-xr-x    2 ftp      ftp             0 Jun 19 12:58 sub\r\n"+
			"-rw-r--r--    1 ftp      ftp          1024 Jun 15 12:49 a.txt\r\n")
		_ = c.PrintfLine("226 Transfer complete.")
	}
	ms.start()
	defer ms.stop()

	c := dialTestClient(t, ms)

	items, err := c.List("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	sub, file := items[0], items[1]
	if !sub.IsDir || sub.Name != "sub" || sub.Size != "" || sub.SizeBytes != -1 {
		t.Errorf("directory entry wrong: %+v", sub)
	}
	if file.IsDir || file.Name != "a.txt" || file.Size != "1KB" || file.SizeBytes != 1024 {
		t.Errorf("file entry wrong: %+v", file)
	}

	wantParent := "ftp://" + ms.addr + "/pub"
	for _, it := range items {
		if it.ParentPath != wantParent {
			t.Errorf("ParentPath = %q, want %q", it.ParentPath, wantParent)
		}
		if it.Path != it.ParentPath+"/"+it.Name {
			t.Errorf("Path invariant broken: %q vs %q + / + %q", it.Path, it.ParentPath, it.Name)
		}
	}
}

func TestQuitAfterTransfer(t *testing.T) {
	t.Parallel()
	ms := newMockServer(t)
	ms.start()
	defer ms.stop()

	c, err := Dial(ms.addr, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Quit(); err != nil {
		t.Errorf("Quit: %v", err)
	}
}
