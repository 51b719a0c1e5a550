package ftpx

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by Put when the configured conflict policy (or the
// OnConflict callback) resolves to ConflictCancel for an existing remote file.
var ErrCancelled = errors.New("ftpx: transfer cancelled")

// ErrDirNotEmpty is returned by RemoveAll when a directory has children,
// Recurse is false and no Confirm callback granted recursive deletion.
var ErrDirNotEmpty = errors.New("ftpx: directory not empty")

// ProtocolError represents an FTP protocol error with full context of the
// command/response conversation. This provides detailed debugging information
// beyond simple error messages.
type ProtocolError struct {
	// Command is the FTP command that was sent (e.g., "STOR file.txt")
	Command string

	// Response is the raw response received from the server (e.g., "550 Permission denied")
	Response string

	// Code is the numeric FTP response code (e.g., 550)
	Code int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftpx: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// Is2xx returns true if the error code is in the 2xx range (success).
func (e *ProtocolError) Is2xx() bool {
	return e.Code >= 200 && e.Code < 300
}

// Is3xx returns true if the error code is in the 3xx range (intermediate).
func (e *ProtocolError) Is3xx() bool {
	return e.Code >= 300 && e.Code < 400
}

// Is4xx returns true if the error code is in the 4xx range (temporary failure).
func (e *ProtocolError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the error code is in the 5xx range (permanent failure).
func (e *ProtocolError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary returns true if the error is a temporary failure (4xx).
// This can be used to implement retry logic.
func (e *ProtocolError) IsTemporary() bool {
	return e.Is4xx()
}

// IsPermanent returns true if the error is a permanent failure (5xx).
func (e *ProtocolError) IsPermanent() bool {
	return e.Is5xx()
}

// ConnectionError indicates that a control connection could not be
// established, or that the server rejected the supplied credentials. It is
// fatal to the call that produced it.
type ConnectionError struct {
	// Addr is the endpoint that was dialed (host:port)
	Addr string

	// Err is the underlying dial, TLS or login error
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ftpx: connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError indicates that a remote path exists neither as a file nor as
// a directory. SizeOf raises it distinctly from its "is a directory" result,
// so callers can classify remote paths without a full listing.
type NotFoundError struct {
	// Path is the remote path that was queried
	Path string

	// Response is the server's rejection message, kept for log lines
	Response string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ftpx: %s: not found (%s)", e.Path, e.Response)
}

// LocalError indicates a failure on the local filesystem side of a transfer:
// a missing upload source or an unwritable download target.
type LocalError struct {
	// Op is the local operation that failed ("open", "create", "mkdir", ...)
	Op string

	// Path is the local path involved
	Path string

	// Err is the underlying os error
	Err error
}

// Error implements the error interface.
func (e *LocalError) Error() string {
	return fmt.Sprintf("ftpx: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LocalError) Unwrap() error { return e.Err }
