package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nmartinon/mboxzilla-go/internal/classify"
	"github.com/nmartinon/mboxzilla-go/internal/sink"
)

func writeMbox(t *testing.T, path string) {
	t.Helper()
	src := "From a@x Sun Jan 1 00:00:00 2024\r\n" +
		"From: a@x\r\nDate: Mon, 1 Jan 2024 00:00:00 +0000\r\nMessage-ID: <1@x>\r\n\r\nbody one\r\n" +
		"From b@x Mon Jan 2 00:00:00 2024\r\n" +
		"From: b@x\r\nDate: Tue, 2 Jan 2024 00:00:00 +0000\r\nMessage-ID: <1@x>\r\n\r\nbody two, a duplicate Message-ID\r\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseExtractsAndCountsMessages(t *testing.T) {
	dir := t.TempDir()
	mboxPath := filepath.Join(dir, "Inbox")
	writeMbox(t, mboxPath)

	eml := &sink.EML{Dir: dir}
	d := New(Options{
		Policy: classify.Policy{KeepDuplicate: true},
		Sinks:  []sink.Sink{eml},
	})

	state, err := d.Parse(context.Background(), mboxPath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if state.MailRead != 2 {
		t.Fatalf("MailRead = %d, want 2", state.MailRead)
	}
	if state.MailDuplicated != 1 {
		t.Fatalf("MailDuplicated = %d, want 1", state.MailDuplicated)
	}
	if state.MailExtracted != 2 {
		t.Fatalf("MailExtracted = %d, want 2", state.MailExtracted)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	count := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".eml" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("found %d .eml files, want 2", count)
	}
}

func TestParseDropsDuplicatesWithoutPolicy(t *testing.T) {
	dir := t.TempDir()
	mboxPath := filepath.Join(dir, "Inbox")
	writeMbox(t, mboxPath)

	eml := &sink.EML{Dir: dir}
	d := New(Options{Sinks: []sink.Sink{eml}})

	state, err := d.Parse(context.Background(), mboxPath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if state.MailExtracted != 1 {
		t.Fatalf("MailExtracted = %d, want 1", state.MailExtracted)
	}
}
