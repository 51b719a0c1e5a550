package ftpx

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		base string
		p    string
		want string
	}{
		{"bare host gains scheme", "", "ftp.example.com", "ftp://ftp.example.com"},
		{"host with port", "", "ftp.example.com:2121", "ftp://ftp.example.com:2121"},
		{"already normalized", "", "ftp://ftp.example.com/pub", "ftp://ftp.example.com/pub"},
		{"trailing slash stripped", "", "ftp://host/pub/", "ftp://host/pub"},
		{"slash runs collapsed", "", "ftp://host//pub///sub", "ftp://host/pub/sub"},
		{"join base and relative", "ftp://host", "pub/sub", "ftp://host/pub/sub"},
		{"join base and absolute", "ftp://host", "/pub", "ftp://host/pub"},
		{"join with doubled slashes", "ftp://host/", "//pub//", "ftp://host/pub"},
		{"full url ignores base", "ftp://host", "ftp://other/x", "ftp://other/x"},
		{"empty path yields base", "ftp://host/pub", "", "ftp://host/pub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.base, tt.p)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q, %q) = %q, want %q", tt.base, tt.p, got, tt.want)
			}
			// Normalization must be a fixed point of itself.
			again := NormalizeURL("", got)
			if again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestRemotePath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		u    string
		want string
	}{
		{"ftp://host", "/"},
		{"ftp://host:21", "/"},
		{"ftp://host/pub", "/pub"},
		{"ftp://host/pub/sub/file.txt", "/pub/sub/file.txt"},
	}
	for _, tt := range tests {
		if got := remotePath(tt.u); got != tt.want {
			t.Errorf("remotePath(%q) = %q, want %q", tt.u, got, tt.want)
		}
	}
}

func TestParentURLAndBaseName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		u          string
		wantParent string
		wantName   string
	}{
		{"ftp://host/pub/file.txt", "ftp://host/pub", "file.txt"},
		{"ftp://host/pub", "ftp://host", "pub"},
		{"ftp://host", "ftp://host", ""},
	}
	for _, tt := range tests {
		if got := parentURL(tt.u); got != tt.wantParent {
			t.Errorf("parentURL(%q) = %q, want %q", tt.u, got, tt.wantParent)
		}
		if got := baseName(tt.u); got != tt.wantName {
			t.Errorf("baseName(%q) = %q, want %q", tt.u, got, tt.wantName)
		}
	}
}

func TestSegmentsBelow(t *testing.T) {
	t.Parallel()
	root := "ftp://host/pub"
	tests := []struct {
		u    string
		want int
	}{
		{"ftp://host/pub", 0},
		{"ftp://host/pub/a", 1},
		{"ftp://host/pub/a/b", 2},
		{"ftp://host/pub/a/b/c", 3},
		{"ftp://host/other", 0},
	}
	for _, tt := range tests {
		if got := segmentsBelow(root, tt.u); got != tt.want {
			t.Errorf("segmentsBelow(%q, %q) = %d, want %d", root, tt.u, got, tt.want)
		}
	}
}
