package ftpx

import (
	"regexp"
	"strings"
)

const ftpScheme = "ftp://"

var slashRun = regexp.MustCompile(`/+`)

// NormalizeURL canonicalizes a remote path against a base endpoint into a
// single absolute URL form: a guaranteed "ftp://" scheme, no duplicate
// slashes and no trailing slash.
//
// If p already carries a scheme marker it is taken verbatim; otherwise it is
// joined to base with a single separating slash. The function is idempotent:
// normalizing an already-normalized URL returns it unchanged.
func NormalizeURL(base, p string) string {
	var full string
	switch {
	case strings.Contains(p, "://"):
		full = p
	case p == "":
		full = base
	case base == "":
		full = p
	default:
		full = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
	}

	if !strings.Contains(full, "://") {
		full = ftpScheme + full
	}

	// Collapsing slash runs damages the scheme separator ("ftp://" becomes
	// "ftp:/"); repair exactly one leading ftp:// prefix afterwards.
	full = slashRun.ReplaceAllString(full, "/")
	if len(full) > 1 {
		full = strings.TrimSuffix(full, "/")
	}
	if strings.HasPrefix(full, "ftp:/") && !strings.HasPrefix(full, ftpScheme) {
		full = ftpScheme + full[len("ftp:/"):]
	}

	return full
}

// remotePath extracts the path portion of a normalized URL for use in wire
// commands. The root of the endpoint maps to "/".
func remotePath(u string) string {
	rest := u
	if i := strings.Index(u, "://"); i >= 0 {
		rest = u[i+len("://"):]
	}
	if j := strings.Index(rest, "/"); j >= 0 {
		return rest[j:]
	}
	return "/"
}

// parentURL returns the normalized URL with its last path segment removed.
// The endpoint root is its own parent.
func parentURL(u string) string {
	start := 0
	if i := strings.Index(u, "://"); i >= 0 {
		start = i + len("://")
	}
	j := strings.LastIndex(u[start:], "/")
	if j < 0 {
		return u
	}
	return u[:start+j]
}

// baseName returns the last path segment of a normalized URL.
func baseName(u string) string {
	start := 0
	if i := strings.Index(u, "://"); i >= 0 {
		start = i + len("://")
	}
	j := strings.LastIndex(u[start:], "/")
	if j < 0 {
		return ""
	}
	return u[start+j+1:]
}

// segmentsBelow counts how many path segments u lies below root. Both inputs
// must be normalized. Depth is measured relative to the traversal root, never
// against the absolute URL's own slash count.
func segmentsBelow(root, u string) int {
	if u == root {
		return 0
	}
	rel, ok := strings.CutPrefix(u, root+"/")
	if !ok {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
