package ftpx

import (
	"strings"
	"testing"
)

func FuzzNormalizeURL(f *testing.F) {
	f.Add("", "ftp://host/pub")
	f.Add("ftp://host", "pub//sub/")
	f.Add("host:2121", "/a/b/c")
	f.Add("", "//weird////input//")

	f.Fuzz(func(t *testing.T, base, p string) {
		u := NormalizeURL(base, p)
		if !strings.HasPrefix(u, ftpScheme) {
			// Inputs that already carried a foreign scheme, or that were
			// empty of any host, pass through without gaining one.
			return
		}
		if again := NormalizeURL("", u); again != u {
			t.Fatalf("not idempotent: NormalizeURL(%q, %q) = %q, renormalized to %q", base, p, u, again)
		}
	})
}
