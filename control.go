package ftpx

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Response is one parsed server reply on the control channel.
type Response struct {
	// Code is the three-digit reply code (220, 550, ...).
	Code int

	// Message is the reply text with the code stripped. Multi-line replies
	// are joined with newlines.
	Message string

	// Lines holds every raw line of the reply.
	Lines []string
}

// Is2xx reports a success reply.
func (r *Response) Is2xx() bool { return r.Code >= 200 && r.Code < 300 }

// Is3xx reports an intermediate reply (more input expected).
func (r *Response) Is3xx() bool { return r.Code >= 300 && r.Code < 400 }

// Is4xx reports a transient failure reply.
func (r *Response) Is4xx() bool { return r.Code >= 400 && r.Code < 500 }

// Is5xx reports a permanent failure reply.
func (r *Response) Is5xx() bool { return r.Code >= 500 && r.Code < 600 }

// String returns the raw reply text.
func (r *Response) String() string {
	return strings.Join(r.Lines, "\n")
}

// readResponse parses one reply, which may span multiple lines. A reply is
// "NNN text" for the single-line form, or "NNN-..." continued until a line
// that repeats the code followed by a space.
func readResponse(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 {
		return nil, fmt.Errorf("short response line: %q", line)
	}

	code, err := strconv.Atoi(line[:3])
	if err != nil {
		return nil, fmt.Errorf("non-numeric response code: %q", line[:3])
	}

	lines := []string{line}

	switch line[3] {
	case ' ':
		return &Response{Code: code, Message: line[4:], Lines: lines}, nil
	case '-':
		if err := readMultiLine(r, code, &lines); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("malformed response line: %q", line)
	}

	var msg []string
	for _, l := range lines {
		if len(l) > 4 {
			msg = append(msg, l[4:])
		}
	}
	return &Response{Code: code, Message: strings.Join(msg, "\n"), Lines: lines}, nil
}

// readMultiLine consumes continuation lines until the terminator for code.
func readMultiLine(r *bufio.Reader, code int, lines *[]string) error {
	codeStr := fmt.Sprintf("%03d", code)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && len(*lines) > 0 {
				return fmt.Errorf("response truncated mid reply")
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		// Free-form continuation lines are indented.
		if len(line) > 0 && line[0] == ' ' {
			*lines = append(*lines, line)
			continue
		}

		if len(line) < 4 || line[:3] != codeStr {
			return fmt.Errorf("reply code changed mid response: %q", line)
		}
		*lines = append(*lines, line)

		switch line[3] {
		case ' ':
			return nil
		case '-':
		default:
			return fmt.Errorf("malformed response line: %q", line)
		}
	}
}

// sendCommand writes one command line and reads the server's reply. Commands
// are serialized behind the client mutex; the reply read shares the
// configured timeout with the write.
func (c *Client) sendCommand(command string, args ...string) (*Response, error) {
	cmd := command
	if len(args) > 0 {
		cmd = command + " " + strings.Join(args, " ")
	}

	if c.logger != nil {
		c.logger.Debug("ftp command", "cmd", cmd)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastCommand = time.Now()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	// The deadline goes on the connection, not the buffered reader.
	if rt := c.effectiveReadTimeout(); rt > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(rt)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("ftp response", "code", resp.Code, "message", resp.Message)
	}
	return resp, nil
}

// expectCode sends a command and requires one exact reply code.
func (c *Client) expectCode(expected int, command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if resp.Code != expected {
		return resp, &ProtocolError{Command: command, Response: resp.Message, Code: resp.Code}
	}
	return resp, nil
}

// expect2xx sends a command and requires any success reply.
func (c *Client) expect2xx(command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if !resp.Is2xx() {
		return resp, &ProtocolError{Command: command, Response: resp.Message, Code: resp.Code}
	}
	return resp, nil
}
