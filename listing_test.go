package ftpx

import (
	"testing"
	"time"
)

func TestDetectDialect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want Dialect
	}{
		{"unix file", "-rw-r--r--    1 ftp      ftp          1024 Jun 15 12:49 a.txt", DialectUnix},
		{"unix dir", "drwxr-xr-x    2 ftp      ftp             0 Jun 19 12:58 sub", DialectUnix},
		{"unix with year", "-rw-r--r--    1 root     root       524288 Mar  3  2019 archive.tar", DialectUnix},
		{"iis dir", "06-19-24  12:58PM       <DIR>          sub", DialectIIS},
		{"iis file", "06-15-24  12:49PM                 1024 a.txt", DialectIIS},
		{"iis four digit year", "06-15-2024  12:49PM               1024 a.txt", DialectIIS},
		{"garbage", "total 48", DialectUnknown},
		{"empty", "", DialectUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDialect(tt.line); got != tt.want {
				t.Errorf("DetectDialect(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseListingUnix(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	raw := "drwxr-xr-x    2 ftp      ftp             0 Jun 19 12:58 sub\r\n" +
		"-rw-r--r--    1 ftp      ftp          1024 Jun 15 12:49 a.txt\r\n"

	items := parseListing(raw, "ftp://host/pub", now)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	sub := items[0]
	if !sub.IsDir {
		t.Error("sub should be a directory")
	}
	if sub.Size != "" || sub.SizeBytes != -1 {
		t.Errorf("directory size should be empty / -1, got %q / %d", sub.Size, sub.SizeBytes)
	}
	if sub.Permissions != "rwxr-xr-x" || sub.Owner != "ftp" || sub.Group != "ftp" || sub.LinkCount != 2 {
		t.Errorf("metadata wrong: %+v", sub)
	}
	if sub.ModTime == nil || !sub.ModTime.Equal(time.Date(2024, time.June, 19, 12, 58, 0, 0, time.UTC)) {
		t.Errorf("ModTime = %v", sub.ModTime)
	}
	if sub.Path != "ftp://host/pub/sub" || sub.ParentPath != "ftp://host/pub" {
		t.Errorf("paths wrong: %q / %q", sub.Path, sub.ParentPath)
	}

	file := items[1]
	if file.IsDir {
		t.Error("a.txt should be a file")
	}
	if file.SizeBytes != 1024 || file.Size != "1KB" {
		t.Errorf("size = %d / %q, want 1024 / 1KB", file.SizeBytes, file.Size)
	}
	if file.ParseErr != nil {
		t.Errorf("unexpected ParseErr: %v", file.ParseErr)
	}
}

func TestParseListingIIS(t *testing.T) {
	t.Parallel()
	raw := "06-19-24  12:58PM       <DIR>          sub\r\n" +
		"06-15-24  12:49PM                 1024 a.txt\r\n"

	items := parseListing(raw, "ftp://host/pub", time.Now())
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	if !items[0].IsDir || items[0].Name != "sub" || items[0].Size != "" {
		t.Errorf("dir entry wrong: %+v", items[0])
	}
	if items[1].IsDir || items[1].Name != "a.txt" || items[1].SizeBytes != 1024 || items[1].Size != "1KB" {
		t.Errorf("file entry wrong: %+v", items[1])
	}
	want := time.Date(2024, time.June, 15, 12, 49, 0, 0, time.UTC)
	if items[1].ModTime == nil || !items[1].ModTime.Equal(want) {
		t.Errorf("ModTime = %v, want %v", items[1].ModTime, want)
	}
}

func TestParseListingDialectLocksOnFirstMatch(t *testing.T) {
	t.Parallel()
	// First matchable line is Unix; a later IIS-shaped line must not switch
	// the parser and surfaces as a parse failure instead.
	raw := "-rw-r--r--    1 ftp      ftp           512 Jun 15 12:49 a.txt\n" +
		"06-19-24  12:58PM       <DIR>          sub\n"

	items := parseListing(raw, "ftp://host", time.Now())
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ParseErr != nil {
		t.Errorf("unix line should parse: %v", items[0].ParseErr)
	}
	if items[1].ParseErr == nil {
		t.Error("iis line under unix dialect should carry a ParseErr")
	}
	if items[1].Raw == "" {
		t.Error("unparsed entry must retain its raw line")
	}
}

func TestParseListingKeepsUnparsableLines(t *testing.T) {
	t.Parallel()
	raw := "total 48\n-rw-r--r--    1 ftp      ftp           512 Jun 15 12:49 a.txt\n"

	items := parseListing(raw, "ftp://host", time.Now())
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ParseErr == nil {
		t.Error("preamble line should carry a ParseErr")
	}
	if items[1].ParseErr != nil {
		t.Errorf("file line should parse cleanly: %v", items[1].ParseErr)
	}
}

func TestParseUnixTimeYearInference(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		field    string
		wantYear int
	}{
		{"same month is current year", "Jun 19 12:58", 2024},
		{"earlier month is current year", "Jan 02 08:00", 2024},
		{"later month is previous year", "Nov 30 23:59", 2023},
		{"explicit year wins", "Mar 3 2019", 2019},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUnixTime(tt.field, now)
			if err != nil {
				t.Fatalf("parseUnixTime(%q): %v", tt.field, err)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("parseUnixTime(%q).Year() = %d, want %d", tt.field, got.Year(), tt.wantYear)
			}
		})
	}
}

func TestParseUnixTimeBadFields(t *testing.T) {
	t.Parallel()
	for _, field := range []string{"", "Jun", "Jun 19", "Xyz 19 12:58", "Jun 99 12:58", "Jun 19 25:00"} {
		if _, err := parseUnixTime(field, time.Now()); err == nil {
			t.Errorf("parseUnixTime(%q) should fail", field)
		}
	}
}

func TestHumanizeSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{1, "1B"},
		{1023, "1023B"},
		{1024, "1KB"},
		{1536, "2KB"},
		{1024 * 1024, "1MB"},
		{12 * 1024 * 1024, "12MB"},
		{3 * 1024 * 1024 * 1024, "3GB"},
		{1024 * 1024 * 1024 * 1024, "1TB"},
		{2 * 1024 * 1024 * 1024 * 1024 * 1024, "2PB"},
	}
	for _, tt := range tests {
		if got := humanizeSize(tt.n); got != tt.want {
			t.Errorf("humanizeSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
