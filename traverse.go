package ftpx

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// TraverseOptions controls a Traverse call.
type TraverseOptions struct {
	// Recurse enables descending into subdirectories. A Depth greater than
	// zero implies recursion even when Recurse is false.
	Recurse bool

	// Depth bounds recursion by path segments relative to the traversal
	// root; 0 means unbounded (when recursing). With Depth = d no returned
	// entry lies more than d segments below the root.
	Depth int

	// Filter is a shell-style glob ("*", "?") matched against bare directory
	// names. Matching directories are included in the result; non-matching
	// directories are excluded but still descended into, so deeply nested
	// matches are found. Files are always included. Empty matches everything.
	Filter string
}

// List lists the immediate contents of a remote directory and parses the
// response into Items. The path may be absolute, relative to the endpoint, or
// a full ftp:// URL.
func (c *Client) List(p string) ([]Item, error) {
	return c.listURL(NormalizeURL(c.baseURL, p))
}

// listURL fetches and parses the listing of an already-normalized URL.
func (c *Client) listURL(u string) ([]Item, error) {
	dataConn, err := c.cmdDataConn("LIST", remotePath(u))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	_, copyErr := io.Copy(&sb, dataConn)

	// The completion reply must be consumed even when the copy fails, or it
	// would be mistaken for the next command's response.
	finishErr := c.finishDataConn(dataConn)
	if copyErr != nil {
		return nil, fmt.Errorf("failed to read directory listing: %w", copyErr)
	}
	if finishErr != nil {
		return nil, finishErr
	}

	return ParseListing(sb.String(), u), nil
}

// Traverse enumerates remote items starting at p, depth-bounded and filtered
// per opts, and returns them globally sorted: by parent path, directories
// before files within the same parent, then by name. An empty result is
// (nil, nil), distinct from an error.
//
// If p names a file rather than a directory, its parent is listed and only
// the exact-name match is returned.
func (c *Client) Traverse(ctx context.Context, p string, opts TraverseOptions) ([]Item, error) {
	if opts.Filter != "" {
		if _, err := path.Match(opts.Filter, "probe"); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", opts.Filter, err)
		}
	}

	root := NormalizeURL(c.baseURL, p)
	recurse := opts.Recurse || opts.Depth > 0

	size, err := c.SizeOf(remotePath(root))
	if err != nil {
		return nil, err
	}

	// A non-negative size means p is a file: list its parent and return the
	// matching entry alone.
	if size >= 0 {
		parent := parentURL(root)
		name := baseName(root)
		entries, err := c.listURL(parent)
		if err != nil {
			return nil, err
		}
		var out []Item
		for _, it := range entries {
			if it.Name == name {
				out = append(out, it)
			}
		}
		sortItems(out)
		return out, nil
	}

	// Directory: walk an explicit worklist of (url, depth) pairs instead of
	// keeping recursion state across calls.
	type dirFrame struct {
		url   string
		depth int
	}

	var out []Item
	work := []dirFrame{{url: root, depth: 0}}

	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := work[0]
		work = work[1:]

		entries, err := c.listURL(frame.url)
		if err != nil {
			return nil, err
		}

		for _, it := range entries {
			if !it.IsDir {
				out = append(out, it)
				continue
			}

			if matchName(opts.Filter, it.Name) {
				out = append(out, it)
			}

			// The filter narrows the returned set, not the traversal set.
			childDepth := frame.depth + 1
			if recurse && (opts.Depth == 0 || childDepth < opts.Depth) {
				work = append(work, dirFrame{url: it.Path, depth: childDepth})
			}
		}
	}

	sortItems(out)
	return out, nil
}

// matchName applies a shell-style glob to a bare name. An empty pattern
// matches everything. Pattern validity is checked by the caller.
func matchName(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// sortItems orders entries by (parent path ascending, directories first,
// name ascending), the presentation order listings are expected in.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ParentPath != b.ParentPath {
			return a.ParentPath < b.ParentPath
		}
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
}
