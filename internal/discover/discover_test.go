package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFindsExtensionlessFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Inbox"), "From a@x Sun Jan 1 00:00:00 2024\r\n\r\n")
	mustWrite(t, filepath.Join(root, "Inbox.msf"), "not an mbox")
	mustWrite(t, filepath.Join(root, "Sent"), "From a@x Sun Jan 1 00:00:00 2024\r\n\r\n")

	d, err := New([]string{root}, "", false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d locations, want 2: %+v", len(got), got)
	}
}

func TestDiscoverExcludesMatchingPaths(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Inbox"), "From a@x Sun Jan 1 00:00:00 2024\r\n\r\n")
	mustWrite(t, filepath.Join(root, "Trash"), "From a@x Sun Jan 1 00:00:00 2024\r\n\r\n")

	d, err := New([]string{root}, "", false, []string{"Trash$"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for _, loc := range got {
		if filepath.Base(loc.Path) == "Trash" {
			t.Fatalf("expected Trash to be excluded, got %+v", got)
		}
	}
}

func TestDiscoverInvalidExcludePattern(t *testing.T) {
	if _, err := New(nil, "", false, []string{"("}); err == nil {
		t.Fatalf("expected error for invalid regex")
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}
