package ftpx

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ftpxgo/ftpx/internal/ratelimit"
)

// DefaultBufferSize is the chunk size used by transfers when the caller does
// not specify one.
const DefaultBufferSize = 32 * 1024

// Store uploads data from an io.Reader to the remote path.
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.txt", file)
func (c *Client) Store(remotePath string, r io.Reader) error {
	_, err := c.storeAt(context.Background(), remotePath, r, 0, 0, nil)
	return err
}

// StoreAt uploads data starting from the specified byte offset.
// This allows resuming an interrupted upload: the reader must already be
// positioned at the offset, and the server appends to the existing file
// (APPE) instead of replacing it.
func (c *Client) StoreAt(remotePath string, r io.Reader, offset int64) error {
	_, err := c.storeAt(context.Background(), remotePath, r, offset, 0, nil)
	return err
}

// Append appends data from r to the end of the remote file, creating the
// file when it does not exist.
func (c *Client) Append(remotePath string, r io.Reader) error {
	_, err := c.streamTo(context.Background(), "APPE", remotePath, r, 0, nil)
	return err
}

// storeAt streams r to remotePath in fixed-size chunks, appending when
// offset > 0. The context is checked between chunks, so a cancellation takes
// effect at buffer granularity. Returns the number of bytes written.
func (c *Client) storeAt(ctx context.Context, remotePath string, r io.Reader, offset int64, bufSize int, progress func(int64)) (int64, error) {
	command := "STOR"
	if offset > 0 {
		// APPE resumes by appending to the remote file's current tail.
		command = "APPE"
	}
	return c.streamTo(ctx, command, remotePath, r, bufSize, progress)
}

func (c *Client) streamTo(ctx context.Context, command, remotePath string, r io.Reader, bufSize int, progress func(int64)) (int64, error) {
	if err := c.Type(c.transferType()); err != nil {
		return 0, fmt.Errorf("failed to set transfer type: %w", err)
	}

	dataConn, err := c.cmdDataConn(command, remotePath)
	if err != nil {
		return 0, err
	}

	dst := ratelimit.NewWriter(dataConn, c.limiter)
	n, copyErr := copyChunks(ctx, dst, r, bufSize, progress)

	// Always finish the data connection (close and read response)
	finishErr := c.finishDataConn(dataConn)

	if copyErr != nil {
		return n, fmt.Errorf("upload failed: %w", copyErr)
	}
	if finishErr != nil {
		return n, finishErr
	}

	return n, nil
}

// Retrieve downloads data from the remote path to an io.Writer.
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Retrieve("remote.txt", file)
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	_, err := c.retrieveAt(context.Background(), remotePath, w, 0, 0, nil)
	return err
}

// RetrieveFrom downloads a file starting from the specified byte offset.
// This is useful for resuming interrupted downloads; the server starts
// streaming from the already-downloaded byte count (REST).
//
// Example:
//
//	file, err := os.OpenFile("large.bin", os.O_WRONLY|os.O_APPEND, 0644)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	info, _ := file.Stat()
//	err = client.RetrieveFrom("large.bin", file, info.Size())
func (c *Client) RetrieveFrom(remotePath string, w io.Writer, offset int64) error {
	_, err := c.retrieveAt(context.Background(), remotePath, w, offset, 0, nil)
	return err
}

// retrieveAt streams remotePath into w in fixed-size chunks, resuming from
// offset when it is positive. The context is checked between chunks.
func (c *Client) retrieveAt(ctx context.Context, remotePath string, w io.Writer, offset int64, bufSize int, progress func(int64)) (int64, error) {
	if err := c.Type(c.transferType()); err != nil {
		return 0, fmt.Errorf("failed to set transfer type: %w", err)
	}

	if offset > 0 {
		if err := c.RestartAt(offset); err != nil {
			return 0, fmt.Errorf("failed to set restart marker: %w", err)
		}
	}

	dataConn, err := c.cmdDataConn("RETR", remotePath)
	if err != nil {
		return 0, err
	}

	src := ratelimit.NewReader(dataConn, c.limiter)
	n, copyErr := copyChunks(ctx, w, src, bufSize, progress)

	// Always finish the data connection (close and read response)
	finishErr := c.finishDataConn(dataConn)

	if copyErr != nil {
		return n, fmt.Errorf("download failed: %w", copyErr)
	}
	if finishErr != nil {
		return n, finishErr
	}

	return n, nil
}

// RestartAt sets the restart marker for the next transfer.
// This allows resuming a transfer from a specific byte offset.
// The offset applies to the next RETR command.
func (c *Client) RestartAt(offset int64) error {
	resp, err := c.sendCommand("REST", fmt.Sprintf("%d", offset))
	if err != nil {
		return err
	}

	// REST should return 350 (Requested file action pending further information)
	if resp.Code != 350 {
		return &ProtocolError{
			Command:  "REST",
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	return nil
}

// UploadFile uploads a local file to the server.
// It opens the local file and streams it to the remote location using Store.
func (c *Client) UploadFile(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return &LocalError{Op: "open", Path: localPath, Err: err}
	}
	defer f.Close()

	if err := c.Store(remotePath, f); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	return nil
}

// DownloadFile downloads a remote file to the local filesystem.
// It creates or truncates the local file and streams the remote content into it.
func (c *Client) DownloadFile(remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return &LocalError{Op: "create", Path: localPath, Err: err}
	}
	defer f.Close()

	if err := c.Retrieve(remotePath, f); err != nil {
		// Clean up the partial file on error
		_ = os.Remove(localPath)
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}

// copyChunks moves bytes from src to dst in fixed-size buffers until a
// zero-length read signals end of data. The context is consulted before every
// read, which is the cancellation granularity for transfers. The progress
// callback receives the cumulative byte count after each chunk.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, bufSize int, progress func(int64)) (int64, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	buf := make([]byte, bufSize)

	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if progress != nil && wn > 0 {
				progress(total)
			}
			if werr != nil {
				return total, werr
			}
			if wn < n {
				return total, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
