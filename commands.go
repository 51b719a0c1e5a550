package ftpx

import (
	"fmt"
	"strconv"
	"strings"
)

// SizeOf returns the size of a remote file in bytes.
//
// The result doubles as a path classifier: a non-negative size means the path
// is a file, -1 means it is a directory, and a *NotFoundError means it exists
// as neither. Directories are told apart from missing paths by probing the
// rejected path with CWD (the working directory is restored afterwards).
func (c *Client) SizeOf(path string) (int64, error) {
	resp, err := c.sendCommand("SIZE", path)
	if err != nil {
		return 0, err
	}

	if resp.Is2xx() {
		size, err := strconv.ParseInt(strings.TrimSpace(resp.Message), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid SIZE response: %s", resp.Message)
		}
		return size, nil
	}

	if resp.Code != 550 {
		return 0, &ProtocolError{
			Command:  "SIZE",
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	// 550 covers both "is a directory" and "no such file". Disambiguate by
	// trying to change into the path.
	prev, err := c.CurrentDir()
	if err != nil {
		return 0, err
	}

	cwdResp, err := c.sendCommand("CWD", path)
	if err != nil {
		return 0, err
	}
	if cwdResp.Is2xx() {
		if err := c.ChangeDir(prev); err != nil {
			return 0, err
		}
		return -1, nil
	}

	return 0, &NotFoundError{Path: path, Response: resp.Message}
}

// ChangeDir changes the current working directory.
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", path)
	return err
}

// CurrentDir returns the current working directory.
func (c *Client) CurrentDir() (string, error) {
	resp, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}

	// Parse the directory from the response
	// Example: 257 "/home/user" is the current directory
	msg := resp.Message
	start := strings.Index(msg, "\"")
	if start == -1 {
		return "", fmt.Errorf("invalid PWD response: %s", msg)
	}
	end := strings.Index(msg[start+1:], "\"")
	if end == -1 {
		return "", fmt.Errorf("invalid PWD response: %s", msg)
	}

	return msg[start+1 : start+1+end], nil
}

// MakeDir creates a new directory.
func (c *Client) MakeDir(path string) error {
	_, err := c.expect2xx("MKD", path)
	return err
}

// MakeDirAll creates a directory along with any missing parents. MKD errors
// on individual segments are ignored since they may already exist; the final
// path is verified to be a directory afterwards.
func (c *Client) MakeDirAll(path string) error {
	cur := ""
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		_ = c.MakeDir(cur)
	}

	size, err := c.SizeOf(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if size >= 0 {
		return fmt.Errorf("failed to create %s: a file with that name exists", path)
	}
	return nil
}

// RemoveDir removes an empty directory.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete deletes a file.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// Rename renames a file or directory.
func (c *Client) Rename(from, to string) error {
	// Send RNFR (rename from)
	resp, err := c.sendCommand("RNFR", from)
	if err != nil {
		return err
	}

	if resp.Code != 350 {
		return &ProtocolError{
			Command:  "RNFR",
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	// Send RNTO (rename to)
	_, err = c.expect2xx("RNTO", to)
	return err
}
