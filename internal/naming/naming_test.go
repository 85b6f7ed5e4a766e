package naming

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/nmartinon/mboxzilla-go/internal/message"
)

func TestDigestPrefersMessageID(t *testing.T) {
	hdr, _, _ := message.ParseHeader([]byte("Message-ID: <abc@x>\r\n\r\n"))
	d1 := Digest(hdr, []byte("irrelevant body"))
	d2 := Digest(hdr, []byte("different body"))
	if d1 != d2 {
		t.Fatalf("digest should be stable across bodies when Message-ID present")
	}
}

func TestDigestFallsBackToBody(t *testing.T) {
	hdr, _, _ := message.ParseHeader([]byte("Subject: x\r\n\r\n"))
	d1 := Digest(hdr, []byte("body a"))
	d2 := Digest(hdr, []byte("body b"))
	if d1 == d2 {
		t.Fatalf("expected different digests for different bodies")
	}
}

func TestFilenameValidAndInvalid(t *testing.T) {
	digest := [16]byte{0xde, 0xad, 0xbe, 0xef}
	date := time.Date(2012, time.November, 16, 17, 16, 9, 0, time.UTC)

	got := Filename(date, true, digest, Options{})
	want := date.Local().Format("20060102150405") + "_" + hex.EncodeToString(digest[:]) + ".eml"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}

	got = Filename(time.Time{}, false, digest, Options{})
	if got[:15] != "00000000000000_" {
		t.Fatalf("invalid Filename = %q", got)
	}
}

func TestFilenamePrefixes(t *testing.T) {
	digest := [16]byte{1}
	date := time.Unix(0, 0).UTC()
	if got := Filename(date, true, digest, Options{Deleted: true}); got[:4] != "del_" {
		t.Fatalf("Filename = %q, want del_ prefix", got)
	}
	if got := Filename(date, true, digest, Options{DuplicateOf: 2}); got[:5] != "dup2_" {
		t.Fatalf("Filename = %q, want dup2_ prefix", got)
	}
	if got := Filename(date, true, digest, Options{Gzip: true}); got[len(got)-3:] != ".gz" {
		t.Fatalf("Filename = %q, want .gz suffix", got)
	}
}
