package classify

import (
	"testing"
	"time"

	"github.com/nmartinon/mboxzilla-go/internal/message"
)

func msg(t *testing.T, raw string) *message.Message {
	t.Helper()
	return message.New("From a@x Sun Jan 1 00:00:00 2024", []byte(raw), 0, true)
}

func TestClassifyValidKept(t *testing.T) {
	c := New(Window{}, Policy{})
	m := msg(t, "From: a@x\r\nDate: Fri, 16 Nov 2012 13:16:09 -0400\r\n\r\nbody\r\n")
	out := c.Classify(m)
	if !out.Valid || !out.Keep || out.Deleted || out.Duplicate || out.Excluded {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestClassifyInvalidMissingDate(t *testing.T) {
	c := New(Window{}, Policy{KeepInvalid: true})
	m := msg(t, "From: a@x\r\n\r\nbody\r\n")
	out := c.Classify(m)
	if out.Valid || !out.Keep {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestClassifyInvalidDroppedWithoutPolicy(t *testing.T) {
	c := New(Window{}, Policy{KeepInvalid: false})
	m := msg(t, "From: a@x\r\n\r\nbody\r\n")
	out := c.Classify(m)
	if out.Keep {
		t.Fatalf("expected drop, got %+v", out)
	}
}

func TestClassifyDeletedMozillaStatus(t *testing.T) {
	c := New(Window{}, Policy{KeepDeleted: true})
	m := msg(t, "From: a@x\r\nDate: Fri, 16 Nov 2012 13:16:09 -0400\r\nX-Mozilla-Status: 0009\r\n\r\nbody\r\n")
	out := c.Classify(m)
	if !out.Deleted || !out.Keep {
		t.Fatalf("expected deleted+kept, got %+v", out)
	}
}

func TestClassifyDuplicate(t *testing.T) {
	c := New(Window{}, Policy{KeepDuplicate: true})
	raw := "From: a@x\r\nMessage-ID: <dup@x>\r\nDate: Fri, 16 Nov 2012 13:16:09 -0400\r\n\r\nbody\r\n"
	first := c.Classify(msg(t, raw))
	second := c.Classify(msg(t, raw))
	if first.Duplicate {
		t.Fatalf("first occurrence should not be a duplicate")
	}
	if !second.Duplicate || second.DuplicateIndex != 1 || !second.Keep {
		t.Fatalf("unexpected second outcome: %+v", second)
	}
}

func TestWindowContainsNormal(t *testing.T) {
	w := Window{
		After: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), HasAfter: true,
		Before: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), HasBefore: true,
	}
	if w.Contains(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected mid-year date inside the interval to be excluded")
	}
	if !w.Contains(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date outside the interval to be kept")
	}
}

func TestWindowContainsInvertedBoundsRejectsInterval(t *testing.T) {
	w := Window{
		After: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), HasAfter: true,
		Before: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), HasBefore: true,
	}
	if w.Contains(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date inside inverted interval to be rejected")
	}
	if !w.Contains(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date outside inverted interval to be kept")
	}
}
