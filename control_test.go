package ftpx

import (
	"bufio"
	"strings"
	"testing"
)

func TestReadResponseSingleLine(t *testing.T) {
	t.Parallel()
	r := bufio.NewReader(strings.NewReader("220 Service ready\r\n"))

	resp, err := readResponse(r)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != 220 || resp.Message != "Service ready" {
		t.Errorf("got %d %q", resp.Code, resp.Message)
	}
	if !resp.Is2xx() {
		t.Error("220 should be 2xx")
	}
}

func TestReadResponseMultiLine(t *testing.T) {
	t.Parallel()
	raw := "211-Extensions supported:\r\n" +
		" SIZE\r\n" +
		" REST STREAM\r\n" +
		"211 End\r\n"
	r := bufio.NewReader(strings.NewReader(raw))

	resp, err := readResponse(r)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != 211 {
		t.Errorf("code = %d", resp.Code)
	}
	if len(resp.Lines) != 4 {
		t.Errorf("lines = %d, want 4", len(resp.Lines))
	}
}

func TestReadResponseMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{"too short", "22\r\n"},
		{"non numeric code", "abc hello\r\n"},
		{"bad separator", "220#oops\r\n"},
		{"mismatched multiline end", "211-Start\r\n500 Wrong\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.raw))
			if _, err := readResponse(r); err == nil {
				t.Errorf("readResponse(%q) should fail", tt.raw)
			}
		})
	}
}

func TestResponseRangePredicates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code  int
		is2xx bool
		is3xx bool
		is4xx bool
		is5xx bool
	}{
		{226, true, false, false, false},
		{350, false, true, false, false},
		{421, false, false, true, false},
		{550, false, false, false, true},
	}
	for _, tt := range tests {
		r := &Response{Code: tt.code}
		if r.Is2xx() != tt.is2xx || r.Is3xx() != tt.is3xx || r.Is4xx() != tt.is4xx || r.Is5xx() != tt.is5xx {
			t.Errorf("predicates for %d wrong", tt.code)
		}
	}
}
