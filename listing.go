package ftpx

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect identifies the textual convention a server uses to format
// directory-listing lines. It is detected once per listing and never
// re-evaluated for subsequent lines of the same response.
type Dialect int

const (
	// DialectUnknown means no matchable line has been seen yet.
	DialectUnknown Dialect = iota

	// DialectUnix is the ls-style listing used by Unix and compatible servers.
	DialectUnix

	// DialectIIS is the Windows IIS6-style listing (MM-DD-YY HH:MMAM/PM).
	DialectIIS
)

// String returns a human-readable dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectUnix:
		return "unix"
	case DialectIIS:
		return "iis"
	default:
		return "unknown"
	}
}

var (
	// unixLineRe matches "<type-flag><9-char perms> <links> <owner> <group>
	// <size> <month day time-or-year> <name>" with a type flag of 'd' or '-'.
	unixLineRe = regexp.MustCompile(`^([-d])([rwxsStT-]{9})\s+(\d+)\s+(\S+)\s+(\S+)\s+(\d+)\s+([A-Za-z]{3}\s+\d{1,2}\s+(?:\d{1,2}:\d{2}|\d{4}))\s+(.+)$`)

	// iisLineRe matches "<MM-DD-YY HH:MMAM/PM> [<DIR>] [size] <name>"; the
	// literal <DIR> token marks a directory, a bare number a file size.
	iisLineRe = regexp.MustCompile(`^(\d{2}-\d{2}-\d{2,4}\s+\d{1,2}:\d{2}(?:AM|PM))\s+(?:(<DIR>)|(\d+))\s+(.+)$`)
)

// Item is a single entry of a parsed directory listing. Items are value
// objects produced fresh per listing call; there is no shared mutable state.
//
// Invariant: Path == ParentPath + "/" + Name.
type Item struct {
	// IsDir reports whether the entry is a directory.
	IsDir bool

	// Permissions is the 9-character permission string (Unix dialect only).
	Permissions string

	// LinkCount is the hard-link count (Unix dialect only).
	LinkCount int

	// Owner and Group are the owning user and group (Unix dialect only).
	Owner string
	Group string

	// SizeBytes is the entry size in bytes; -1 for directories.
	SizeBytes int64

	// Size is the humanized size string ("1KB", "12MB", ...); always empty
	// for directories.
	Size string

	// ModTime is the parsed modification time, or nil when the server's date
	// field could not be parsed. The original text survives in Raw.
	ModTime *time.Time

	// Name is the bare entry name.
	Name string

	// Path is the full normalized URL of the entry.
	Path string

	// ParentPath is the normalized URL of the containing directory.
	ParentPath string

	// Raw is the original listing line, preserved for diagnostics.
	Raw string

	// ParseErr records a per-field parse failure (e.g. an unparseable date).
	// It never fails the listing call.
	ParseErr error
}

// DetectDialect classifies a single listing line. Lines matching the Unix
// pattern select DialectUnix; lines matching the IIS6 pattern select
// DialectIIS; anything else stays DialectUnknown. ParseListing applies this
// to lines in server order and locks in the first non-unknown result.
func DetectDialect(line string) Dialect {
	if unixLineRe.MatchString(line) {
		return DialectUnix
	}
	if iisLineRe.MatchString(line) {
		return DialectIIS
	}
	return DialectUnknown
}

// ParseListing converts the raw multi-line text of a directory listing
// response into Items, one per non-empty line, preserving server order.
// parent must be the already-normalized URL of the listed directory; it seeds
// the Path/ParentPath fields of every entry.
//
// The listing dialect (Unix vs IIS6) is auto-detected from the first
// matchable line and then fixed for the remainder of the call. A line or
// field that fails to parse is retained with its raw text and a ParseErr
// rather than failing the whole listing.
func ParseListing(raw, parent string) []Item {
	return parseListing(raw, parent, time.Now())
}

func parseListing(raw, parent string, now time.Time) []Item {
	var items []Item
	dialect := DialectUnknown

	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if dialect == DialectUnknown {
			dialect = DetectDialect(line)
		}

		var it Item
		var ok bool
		switch dialect {
		case DialectUnix:
			it, ok = parseUnixLine(line, parent, now)
		case DialectIIS:
			it, ok = parseIISLine(line, parent)
		}
		if !ok {
			// Keep the line for diagnostics instead of failing the call.
			it = Item{
				Name:       strings.TrimSpace(line),
				SizeBytes:  -1,
				Raw:        line,
				ParseErr:   fmt.Errorf("unrecognized listing line (%s dialect)", dialect),
				ParentPath: parent,
			}
			it.Path = parent + "/" + it.Name
		}
		items = append(items, it)
	}

	return items
}

// parseUnixLine parses one Unix-dialect line.
func parseUnixLine(line, parent string, now time.Time) (Item, bool) {
	m := unixLineRe.FindStringSubmatch(line)
	if m == nil {
		return Item{}, false
	}

	it := Item{
		IsDir:       m[1] == "d",
		Permissions: m[2],
		Owner:       m[4],
		Group:       m[5],
		Raw:         line,
		ParentPath:  parent,
		Name:        strings.TrimSpace(m[8]),
	}
	it.Path = parent + "/" + it.Name

	if links, err := strconv.Atoi(m[3]); err == nil {
		it.LinkCount = links
	}

	if it.IsDir {
		it.SizeBytes = -1
	} else if size, err := strconv.ParseInt(m[6], 10, 64); err == nil {
		it.SizeBytes = size
		it.Size = humanizeSize(size)
	} else {
		it.ParseErr = fmt.Errorf("bad size field %q", m[6])
	}

	if t, err := parseUnixTime(m[7], now); err == nil {
		it.ModTime = &t
	} else {
		it.ParseErr = err
	}

	return it, true
}

// parseUnixTime resolves the "<month> <day> <time-or-year>" field.
//
// Servers omit the year for dates within roughly the last 12 months, so when
// the third field is a clock time the year is inferred: a listing month at or
// before the current month belongs to the current year, a later month to the
// previous year (listings are never dated in the future).
func parseUnixTime(field string, now time.Time) (time.Time, error) {
	parts := strings.Fields(field)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("bad date field %q", field)
	}

	month, err := time.Parse("Jan", parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad month %q", parts[0])
	}

	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bad day %q", parts[1])
	}

	if strings.Contains(parts[2], ":") {
		hm := strings.SplitN(parts[2], ":", 2)
		hour, err1 := strconv.Atoi(hm[0])
		minute, err2 := strconv.Atoi(hm[1])
		if err1 != nil || err2 != nil || hour > 23 || minute > 59 {
			return time.Time{}, fmt.Errorf("bad time %q", parts[2])
		}

		year := now.Year()
		if month.Month() > now.Month() {
			year--
		}
		return time.Date(year, month.Month(), day, hour, minute, 0, 0, time.UTC), nil
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year %q", parts[2])
	}
	return time.Date(year, month.Month(), day, 0, 0, 0, 0, time.UTC), nil
}

// parseIISLine parses one Windows-IIS6-dialect line.
func parseIISLine(line, parent string) (Item, bool) {
	m := iisLineRe.FindStringSubmatch(line)
	if m == nil {
		return Item{}, false
	}

	it := Item{
		IsDir:      m[2] == "<DIR>",
		Raw:        line,
		ParentPath: parent,
		Name:       strings.TrimSpace(m[4]),
	}
	it.Path = parent + "/" + it.Name

	if it.IsDir {
		it.SizeBytes = -1
	} else if size, err := strconv.ParseInt(m[3], 10, 64); err == nil {
		it.SizeBytes = size
		it.Size = humanizeSize(size)
	} else {
		it.ParseErr = fmt.Errorf("bad size field %q", m[3])
	}

	for _, layout := range []string{"01-02-06 3:04PM", "01-02-2006 3:04PM"} {
		if t, err := time.Parse(layout, strings.Join(strings.Fields(m[1]), " ")); err == nil {
			it.ModTime = &t
			break
		}
	}
	if it.ModTime == nil {
		it.ParseErr = fmt.Errorf("bad date field %q", m[1])
	}

	return it, true
}

// sizeUnits are the humanization steps; the value is scaled to the largest
// unit that keeps it below 1024.
var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// humanizeSize renders a byte count with its largest sub-1024 unit, rounded
// to the nearest integer.
func humanizeSize(n int64) string {
	f := float64(n)
	unit := 0
	for f >= 1024 && unit < len(sizeUnits)-1 {
		f /= 1024
		unit++
	}
	return fmt.Sprintf("%d%s", int64(math.Round(f)), sizeUnits[unit])
}
