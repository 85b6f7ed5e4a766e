package config

import (
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{"--file", "a.mbox", "--file", "b.mbox", "--output-dir", "/tmp/out", "-vv"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Files) != 2 || cfg.Files[0] != "a.mbox" || cfg.Files[1] != "b.mbox" {
		t.Fatalf("Files = %v", cfg.Files)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Fatalf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Verbosity != 2 {
		t.Fatalf("Verbosity = %d, want 2", cfg.Verbosity)
	}
}

func TestApplyFileSetsDefaults(t *testing.T) {
	cfg := defaults()
	src := "# comment\nfile=a.mbox\nkeep-invalid=true\nsplit-max-bytes=123\n\n"
	if err := applyFile(strings.NewReader(src), &cfg); err != nil {
		t.Fatalf("applyFile: %v", err)
	}
	if len(cfg.Files) != 1 || cfg.Files[0] != "a.mbox" {
		t.Fatalf("Files = %v", cfg.Files)
	}
	if !cfg.KeepInvalid {
		t.Fatalf("KeepInvalid not set")
	}
	if cfg.SplitMaxBytes != 123 {
		t.Fatalf("SplitMaxBytes = %d", cfg.SplitMaxBytes)
	}
}

func TestApplyFileRejectsUnknownKey(t *testing.T) {
	cfg := defaults()
	if err := applyFile(strings.NewReader("bogus=1\n"), &cfg); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseRejectsAgeMinWithDateBefore(t *testing.T) {
	_, err := Parse([]string{"--file", "a.mbox", "--age-min", "30", "--date-before", "2020-01-01"})
	if err == nil {
		t.Fatalf("expected error for --age-min combined with --date-before")
	}
}

func TestParseRejectsAgeMaxWithDateAfter(t *testing.T) {
	_, err := Parse([]string{"--file", "a.mbox", "--age-max", "30", "--date-after", "2020-01-01"})
	if err == nil {
		t.Fatalf("expected error for --age-max combined with --date-after")
	}
}
