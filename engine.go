package ftpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ConflictPolicy decides what happens when a transfer target already exists.
// It is a configuration input supplied before the call; the library never
// prompts. The zero value is ConflictCancel, the safe default.
type ConflictPolicy int

const (
	// ConflictCancel leaves both sides untouched.
	ConflictCancel ConflictPolicy = iota

	// ConflictOverwrite replaces the existing target from the beginning.
	ConflictOverwrite

	// ConflictResume continues a partial transfer from the destination's
	// current byte count. Only applicable while the destination is strictly
	// smaller than the source; otherwise it degrades to ConflictCancel.
	ConflictResume
)

// String returns a human-readable policy name.
func (p ConflictPolicy) String() string {
	switch p {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictResume:
		return "resume"
	default:
		return "cancel"
	}
}

// TransferStatus reports the outcome of a Get call. It is meaningful only
// when the accompanying error is nil.
type TransferStatus int

const (
	// StatusSkipped means nothing was transferred (e.g. the remote path is a
	// directory).
	StatusSkipped TransferStatus = iota

	// StatusDone means the transfer completed.
	StatusDone

	// StatusCancelled means an existing target resolved to ConflictCancel.
	StatusCancelled
)

// String returns a human-readable status name.
func (s TransferStatus) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusCancelled:
		return "cancelled"
	default:
		return "skipped"
	}
}

// PutRequest describes an upload.
type PutRequest struct {
	// LocalPath is the file to upload. It must exist.
	LocalPath string

	// RemoteDir is the remote directory receiving the file; the target name
	// is the local file's base name.
	RemoteDir string

	// Conflict is applied when a same-named remote file already exists.
	Conflict ConflictPolicy

	// OnConflict, when set, is consulted instead of Conflict. It receives
	// the local and remote sizes and must answer synchronously.
	OnConflict func(localSize, remoteSize int64) ConflictPolicy

	// BufferSize is the transfer chunk size; 0 means DefaultBufferSize.
	BufferSize int

	// Progress, when set, receives the completed percentage after each chunk.
	Progress func(percent float64)
}

// GetRequest describes a download.
type GetRequest struct {
	// RemotePath is the remote file to download. Directories are a no-op.
	RemotePath string

	// LocalDir is the directory receiving the file.
	LocalDir string

	// RecreateDirs mirrors the remote directory structure under LocalDir
	// instead of flattening everything into it.
	RecreateDirs bool

	// Conflict is applied when the local target file already exists.
	Conflict ConflictPolicy

	// OnConflict, when set, is consulted instead of Conflict. It receives
	// the local and remote sizes and must answer synchronously.
	OnConflict func(localSize, remoteSize int64) ConflictPolicy

	// BufferSize is the transfer chunk size; 0 means DefaultBufferSize.
	BufferSize int

	// Progress, when set, receives the completed percentage after each chunk.
	Progress func(percent float64)
}

// RemoveOptions controls RemoveAll.
type RemoveOptions struct {
	// Recurse allows deleting a non-empty directory without consulting
	// Confirm.
	Recurse bool

	// Confirm is asked once, before anything is deleted, when the target
	// directory has children and Recurse is false. Returning false aborts
	// the removal with ErrDirNotEmpty, as does leaving Confirm nil.
	Confirm func(path string, children int) bool
}

// Put uploads a local file into a remote directory and returns the freshly
// re-listed remote entry as round-trip confirmation.
//
// When a same-named remote file exists, the three-way overwrite/cancel/resume
// decision comes from req.Conflict or req.OnConflict; resume seeks the local
// file to the remote's current size and appends the remainder. A resolved
// ConflictCancel returns ErrCancelled.
func (c *Client) Put(ctx context.Context, req PutRequest) (Item, error) {
	fi, err := os.Stat(req.LocalPath)
	if err != nil {
		return Item{}, &LocalError{Op: "stat", Path: req.LocalPath, Err: err}
	}
	if fi.IsDir() {
		return Item{}, &LocalError{Op: "open", Path: req.LocalPath, Err: errors.New("is a directory")}
	}

	dirURL := NormalizeURL(c.baseURL, req.RemoteDir)
	name := filepath.Base(req.LocalPath)
	wire := remotePath(dirURL + "/" + name)

	localSize := fi.Size()
	var offset int64

	remoteSize, err := c.SizeOf(wire)
	switch {
	case err == nil && remoteSize >= 0:
		policy := req.Conflict
		if req.OnConflict != nil {
			policy = req.OnConflict(localSize, remoteSize)
		}
		if policy == ConflictResume && remoteSize >= localSize {
			// Resume cannot apply to an equal-or-larger remote file.
			policy = ConflictCancel
		}
		switch policy {
		case ConflictOverwrite:
			offset = 0
		case ConflictResume:
			offset = remoteSize
		default:
			return Item{}, ErrCancelled
		}
	case err == nil:
		return Item{}, fmt.Errorf("ftpx: %s: a remote directory with that name exists", wire)
	default:
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return Item{}, err
		}
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return Item{}, &LocalError{Op: "open", Path: req.LocalPath, Err: err}
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return Item{}, &LocalError{Op: "seek", Path: req.LocalPath, Err: err}
		}
	}

	if _, err := c.storeAt(ctx, wire, f, offset, req.BufferSize, percentFunc(req.Progress, offset, localSize)); err != nil {
		return Item{}, err
	}

	// Round-trip confirmation: the entry must now appear in its directory.
	entries, err := c.listURL(dirURL)
	if err != nil {
		return Item{}, err
	}
	for _, it := range entries {
		if it.Name == name {
			return it, nil
		}
	}
	return Item{}, &NotFoundError{Path: wire, Response: "uploaded file missing from listing"}
}

// Get downloads a remote file into a local directory.
//
// The remote path is classified with a size query first: directories are a
// no-op (StatusSkipped) since only per-file traversal results are meant to be
// piped in. When the local target exists, the same three-way decision as Put
// applies, keyed on the local-vs-remote size comparison; resume appends
// locally and asks the server to stream from the already-downloaded offset.
func (c *Client) Get(ctx context.Context, req GetRequest) (TransferStatus, error) {
	u := NormalizeURL(c.baseURL, req.RemotePath)
	wire := remotePath(u)

	remoteSize, err := c.SizeOf(wire)
	if err != nil {
		return StatusSkipped, err
	}
	if remoteSize < 0 {
		return StatusSkipped, nil
	}

	var target string
	if req.RecreateDirs {
		rel := strings.TrimPrefix(wire, "/")
		target = filepath.Join(req.LocalDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return StatusSkipped, &LocalError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
		}
	} else {
		target = filepath.Join(req.LocalDir, path.Base(wire))
	}

	var offset int64
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
		policy := req.Conflict
		if req.OnConflict != nil {
			policy = req.OnConflict(fi.Size(), remoteSize)
		}
		if policy == ConflictResume && fi.Size() >= remoteSize {
			policy = ConflictCancel
		}
		switch policy {
		case ConflictOverwrite:
			// Truncate and start over.
		case ConflictResume:
			offset = fi.Size()
			flags = os.O_WRONLY | os.O_APPEND
		default:
			return StatusCancelled, nil
		}
	}

	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return StatusSkipped, &LocalError{Op: "create", Path: target, Err: err}
	}
	defer f.Close()

	if _, err := c.retrieveAt(ctx, wire, f, offset, req.BufferSize, percentFunc(req.Progress, offset, remoteSize)); err != nil {
		return StatusSkipped, err
	}

	return StatusDone, nil
}

// RemoveAll deletes a remote file, or a remote directory tree bottom-up.
//
// Files are deleted directly. For a directory, the immediate children are
// listed first; when children exist and opts.Recurse is false, opts.Confirm
// decides whether to proceed (a refusal or missing callback aborts with
// ErrDirNotEmpty and the server untouched). Each child is then removed,
// files directly and subdirectories by the same rule, before the now-empty
// directory itself. The first failing child halts the subtree and the error
// propagates.
func (c *Client) RemoveAll(ctx context.Context, p string, opts RemoveOptions) error {
	u := NormalizeURL(c.baseURL, p)
	wire := remotePath(u)

	size, err := c.SizeOf(wire)
	if err != nil {
		return err
	}
	if size >= 0 {
		return c.Delete(wire)
	}

	children, err := c.listURL(u)
	if err != nil {
		return err
	}

	if len(children) > 0 && !opts.Recurse {
		if opts.Confirm == nil || !opts.Confirm(u, len(children)) {
			return ErrDirNotEmpty
		}
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if child.IsDir {
			if err := c.RemoveAll(ctx, child.Path, RemoveOptions{Recurse: true}); err != nil {
				return err
			}
			continue
		}
		if err := c.Delete(remotePath(child.Path)); err != nil {
			return err
		}
	}

	return c.RemoveDir(wire)
}

// percentFunc adapts a percentage callback to the cumulative byte counts the
// copy loop reports. A zero-byte total is clamped to one byte so empty files
// cannot divide by zero.
func percentFunc(progress func(float64), offset, total int64) func(int64) {
	if progress == nil {
		return nil
	}
	if total < 1 {
		total = 1
	}
	return func(n int64) {
		progress(float64(offset+n) / float64(total) * 100)
	}
}
