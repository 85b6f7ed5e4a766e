package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEMLWritesAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := &EML{Dir: dir}
	e := Entry{Name: "msg.eml", Envelope: "From a@x Sun Jan 1 00:00:00 2024", Raw: []byte("Subject: x\n\nbody\n"), Newline: "\n"}
	if err := s.Write(e); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(dir, "msg.eml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty file")
	}
	// Mutate the on-disk file then re-write: idempotent skip must leave it alone.
	if err := os.WriteFile(path, []byte("sentinel"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Write(e); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "sentinel" {
		t.Fatalf("expected idempotent skip, file was overwritten: %q", data)
	}
}

func TestCompactWritesVerbatim(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCompact(filepath.Join(dir, "archive"), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewCompact: %v", err)
	}
	raw := []byte("Subject: x\n\nFrom the report, sales grew\n")
	e := Entry{
		Envelope: "From a@x Sun Jan 1 00:00:00 2024",
		Raw:      raw,
		Newline:  "\n",
	}
	if err := c.Write(e); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := append([]byte(e.Envelope+e.Newline), raw...)
	if !bytes.Equal(data, want) {
		t.Fatalf("compact output not byte-for-byte: got %q, want %q", data, want)
	}
}

func TestSplitRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	s := NewSplit(filepath.Join(dir, "archive"), 60, 10)
	e1 := Entry{Envelope: "From a@x Sun Jan 1 00:00:00 2024", Raw: []byte("0123456789\n"), Newline: "\n"}
	e2 := Entry{Envelope: "From b@x Sun Jan 1 00:00:00 2024", Raw: []byte("0123456789\n"), Newline: "\n"}
	if err := s.Write(e1); err != nil {
		t.Fatalf("Write e1: %v", err)
	}
	if err := s.Write(e2); err != nil {
		t.Fatalf("Write e2: %v", err)
	}
	s.Close()
	if s.PartCount() != 2 {
		t.Fatalf("PartCount = %d, want 2 (second message must open a new part)", s.PartCount())
	}
}

func TestSplitRejectsOversizedMessage(t *testing.T) {
	dir := t.TempDir()
	s := NewSplit(filepath.Join(dir, "archive"), 8, 10)
	e := Entry{Envelope: "From a@x Sun Jan 1 00:00:00 2024", Raw: []byte("way too big for the limit\n"), Newline: "\n"}
	if err := s.Write(e); err != ErrMessageTooLarge {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}
