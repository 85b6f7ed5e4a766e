// Package config implements the CLI/config-file surface (spec §6.5): GNU
// long flags via github.com/spf13/pflag, layered over a flat "key=value"
// config file that supplies defaults a flag can still override.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	flag "github.com/spf13/pflag"
)

// Config holds every setting spec.md §6.5 names.
type Config struct {
	Files   []string
	OutputDir string

	Extract bool
	Compact bool
	Split   bool
	SplitMaxBytes int64
	Gzip    bool
	CRLF    bool

	KeepInvalid   bool
	KeepDeleted   bool
	KeepDuplicate bool

	DateAfter  string
	DateBefore string
	AgeMinDays int
	AgeMaxDays int

	Synchronize bool

	UploadEndpoint string
	Passphrase     string
	SpeedLimit     int

	SourceExclude    []string
	WithLocalFolders bool

	StartWaitSeconds   int
	StartRandomSeconds int

	LogFile   string
	Verbosity int

	ChunkSizeBytes      int
	MaxMessageSizeBytes int
}

// defaults returns the hardcoded defaults, used both as the base and as the
// seed a config file's values are layered onto.
func defaults() Config {
	return Config{
		Extract:             true,
		SplitMaxBytes:       100 << 20,
		ChunkSizeBytes:      1 << 20,
		MaxMessageSizeBytes: 64 << 20,
	}
}

// Parse builds a Config from args (typically os.Args[1:]). It first scans
// args for --config (without fully parsing, since flag defaults depend on
// the file), loads that file's key=value pairs as defaults, then parses
// args for real so explicit flags win.
func Parse(args []string) (*Config, error) {
	cfg := defaults()

	if path := preScanConfigFlag(args); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("mboxzilla", flag.ContinueOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to a key=value config file")
	fs.StringArrayVar(&cfg.Files, "file", cfg.Files, "mbox file to process (repeatable)")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for extracted/compact/split output")
	fs.BoolVar(&cfg.Extract, "extract", cfg.Extract, "write one .eml file per kept message")
	fs.BoolVar(&cfg.Compact, "compact", cfg.Compact, "append kept messages to a single compact mbox")
	fs.BoolVar(&cfg.Split, "split", cfg.Split, "write kept messages to size-bounded mbox parts")
	fs.Int64Var(&cfg.SplitMaxBytes, "split-max-bytes", cfg.SplitMaxBytes, "maximum size of one split part")
	fs.BoolVar(&cfg.Gzip, "gzip", cfg.Gzip, "gzip-compress extracted .eml files")
	fs.BoolVar(&cfg.CRLF, "crlf", cfg.CRLF, "rewrite extracted messages to CRLF line endings")
	fs.BoolVar(&cfg.KeepInvalid, "keep-invalid", cfg.KeepInvalid, "keep messages with no usable From/Date")
	fs.BoolVar(&cfg.KeepDeleted, "keep-deleted", cfg.KeepDeleted, "keep messages flagged deleted")
	fs.BoolVar(&cfg.KeepDuplicate, "keep-duplicate", cfg.KeepDuplicate, "keep messages identified as duplicates")
	fs.StringVar(&cfg.DateAfter, "date-after", cfg.DateAfter, `keep only mail dated on/after "YYYY-MM-DD HH:MM:SS" (with an earlier --date-before, mail between the two dates is excluded instead)`)
	fs.StringVar(&cfg.DateBefore, "date-before", cfg.DateBefore, `keep only mail dated on/before "YYYY-MM-DD HH:MM:SS"`)
	fs.IntVar(&cfg.AgeMinDays, "age-min", cfg.AgeMinDays, "keep only mail at least this many days old")
	fs.IntVar(&cfg.AgeMaxDays, "age-max", cfg.AgeMaxDays, "keep only mail at most this many days old")
	fs.BoolVar(&cfg.Synchronize, "synchronize", cfg.Synchronize, "remove previously extracted files no longer produced by this run")
	fs.StringVar(&cfg.UploadEndpoint, "upload-endpoint", cfg.UploadEndpoint, "remote callback sink endpoint URL")
	fs.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "shared passphrase for upload encryption")
	fs.IntVar(&cfg.SpeedLimit, "speed-limit", cfg.SpeedLimit, "cap upload throughput in bytes/sec (0 = unlimited)")
	fs.StringSliceVar(&cfg.SourceExclude, "source-exclude", cfg.SourceExclude, "comma-separated regexes of discovered mbox paths to skip (repeatable)")
	fs.BoolVar(&cfg.WithLocalFolders, "with-localfolders", cfg.WithLocalFolders, "also discover the profile's Local Folders subtree")
	fs.IntVar(&cfg.StartWaitSeconds, "start-wait", cfg.StartWaitSeconds, "sleep this many seconds before the first parse")
	fs.IntVar(&cfg.StartRandomSeconds, "start-random", cfg.StartRandomSeconds, "sleep a random number of seconds (0..n) before the first parse")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write JSON logs here instead of a console to stderr")
	fs.CountVarP(&cfg.Verbosity, "verbose", "v", "increase verbosity (repeatable, up to 3)")

	if err := fs.Parse(args); err != nil {
		return nil, eris.Wrap(err, "config: parse flags")
	}
	if cfg.Verbosity > 3 {
		cfg.Verbosity = 3
	}
	if err := validateMutualExclusions(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateMutualExclusions enforces spec §6.5's "age-min ⊕ date-before" and
// "age-max ⊕ date-after" rule: each pair configures the same date bound two
// different ways, and silently letting one overwrite the other (as
// dateWindow's age-to-bound conversion would) hides a configuration
// mistake instead of rejecting it (spec §7, ConfigError).
func validateMutualExclusions(cfg *Config) error {
	if cfg.AgeMinDays != 0 && cfg.DateBefore != "" {
		return eris.New("config: --age-min and --date-before are mutually exclusive")
	}
	if cfg.AgeMaxDays != 0 && cfg.DateAfter != "" {
		return eris.New("config: --age-max and --date-after are mutually exclusive")
	}
	return nil
}

func preScanConfigFlag(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "--config=") {
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

// loadFile parses a flat "key=value" config file (one setting per line,
// '#' starts a comment, blank lines ignored) into cfg. It intentionally
// does not support sections or nesting: spec §6.5's config file is a single
// flat list of the same settings the flags expose, so a hand-rolled
// bufio.Scanner loop is simpler and clearer than pulling in an INI/TOML
// parser for a format this small (see DESIGN.md).
func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()
	return applyFile(f, cfg)
}

func applyFile(r io.Reader, cfg *Config) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return eris.Errorf("config: malformed line %q (expected key=value)", line)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if err := setField(cfg, key, val); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return eris.Wrap(err, "config: read config file")
	}
	return nil
}

func setField(cfg *Config, key, val string) error {
	switch key {
	case "file":
		cfg.Files = append(cfg.Files, val)
	case "output-dir":
		cfg.OutputDir = val
	case "extract":
		return setBool(&cfg.Extract, key, val)
	case "compact":
		return setBool(&cfg.Compact, key, val)
	case "split":
		return setBool(&cfg.Split, key, val)
	case "split-max-bytes":
		return setInt64(&cfg.SplitMaxBytes, key, val)
	case "gzip":
		return setBool(&cfg.Gzip, key, val)
	case "crlf":
		return setBool(&cfg.CRLF, key, val)
	case "keep-invalid":
		return setBool(&cfg.KeepInvalid, key, val)
	case "keep-deleted":
		return setBool(&cfg.KeepDeleted, key, val)
	case "keep-duplicate":
		return setBool(&cfg.KeepDuplicate, key, val)
	case "date-after":
		cfg.DateAfter = val
	case "date-before":
		cfg.DateBefore = val
	case "age-min":
		return setInt(&cfg.AgeMinDays, key, val)
	case "age-max":
		return setInt(&cfg.AgeMaxDays, key, val)
	case "synchronize":
		return setBool(&cfg.Synchronize, key, val)
	case "upload-endpoint":
		cfg.UploadEndpoint = val
	case "passphrase":
		cfg.Passphrase = val
	case "speed-limit":
		return setInt(&cfg.SpeedLimit, key, val)
	case "source-exclude":
		cfg.SourceExclude = append(cfg.SourceExclude, strings.Split(val, ",")...)
	case "with-localfolders":
		return setBool(&cfg.WithLocalFolders, key, val)
	case "start-wait":
		return setInt(&cfg.StartWaitSeconds, key, val)
	case "start-random":
		return setInt(&cfg.StartRandomSeconds, key, val)
	case "log-file":
		cfg.LogFile = val
	case "verbose":
		return setInt(&cfg.Verbosity, key, val)
	default:
		return eris.Errorf("config: unknown key %q", key)
	}
	return nil
}

func setBool(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return eris.Wrapf(err, "config: %s=%s is not a bool", key, val)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return eris.Wrapf(err, "config: %s=%s is not an int", key, val)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key, val string) error {
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return eris.Wrapf(err, "config: %s=%s is not an int64", key, val)
	}
	*dst = n
	return nil
}

// String renders cfg for diagnostic logging (-v 3), never including the
// passphrase in the clear.
func (c *Config) String() string {
	redacted := "<unset>"
	if c.Passphrase != "" {
		redacted = "<redacted>"
	}
	return fmt.Sprintf("files=%v output-dir=%s passphrase=%s verbosity=%d", c.Files, c.OutputDir, redacted, c.Verbosity)
}
