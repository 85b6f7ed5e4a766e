package mbox

import (
	"io"
	"strings"
	"testing"
)

func TestReaderSplitsTwoMessages(t *testing.T) {
	src := "From a@x Sun Jan 1 00:00:00 2024\r\n" +
		"Subject: one\r\n\r\nbody one\r\n" +
		"From b@x Mon Jan 2 00:00:00 2024\r\n" +
		"Subject: two\r\n\r\nbody two\r\n"
	r := NewReader(strings.NewReader(src), 8, 0)

	m1, err := r.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if string(m1.Envelope) != "From a@x Sun Jan 1 00:00:00 2024" {
		t.Fatalf("unexpected envelope: %q", m1.Envelope)
	}
	if m1.IsLast {
		t.Fatalf("first message should not be last")
	}
	if !strings.Contains(string(m1.Body), "body one") {
		t.Fatalf("missing body: %q", m1.Body)
	}

	m2, err := r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if string(m2.Envelope) != "From b@x Mon Jan 2 00:00:00 2024" {
		t.Fatalf("unexpected envelope: %q", m2.Envelope)
	}
	if !m2.IsLast {
		t.Fatalf("second message should be last")
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReaderRejectsNonMbox(t *testing.T) {
	r := NewReader(strings.NewReader("Subject: not an mbox\r\n\r\nbody\r\n"), 8, 0)
	if _, err := r.Next(); err != ErrNotAnMbox {
		t.Fatalf("expected ErrNotAnMbox, got %v", err)
	}
}

func TestReaderDoesNotSplitOnNonQualifyingFromLine(t *testing.T) {
	src := "From a@x Sun Jan 1 00:00:00 2024\r\n" +
		"Subject: one\r\n\r\n" +
		"quoting: From the report, sales grew\r\n" +
		"more body\r\n"
	r := NewReader(strings.NewReader(src), 4, 0)
	m, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(string(m.Body), "quoting: From the report") {
		t.Fatalf("body wrongly split: %q", m.Body)
	}
	if !m.IsLast {
		t.Fatalf("expected single message to be last")
	}
}

func TestQualifiesAsSeparator(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a@x Sun Jan 1 00:00:00 2024", true},
		{"a@x Sun Jan 45 99:99:99 2024", false}, // invalid day
		{"a@x Sun Foo 1 00:00:00 2024", false},  // bad month
		{"a@x Sun Jan 1 00:00:00", false},       // missing year -> wrong token count
		{"the report, sales grew", false},
	}
	for _, c := range cases {
		if got := qualifiesAsSeparator([]byte(c.in)); got != c.want {
			t.Errorf("qualifiesAsSeparator(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
