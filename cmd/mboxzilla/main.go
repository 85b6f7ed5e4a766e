// Command mboxzilla parses mbox files, classifies each message, and fans
// kept messages out to the configured sinks (.eml files, a compact mbox,
// size-bounded split parts, and/or a remote upload endpoint).
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nmartinon/mboxzilla-go/internal/classify"
	"github.com/nmartinon/mboxzilla-go/internal/config"
	"github.com/nmartinon/mboxzilla-go/internal/driver"
	"github.com/nmartinon/mboxzilla-go/internal/logging"
	"github.com/nmartinon/mboxzilla-go/internal/ports"
	"github.com/nmartinon/mboxzilla-go/internal/sink"
	"github.com/nmartinon/mboxzilla-go/internal/upload"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mboxzilla:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}
	if len(cfg.Files) == 0 {
		return fmt.Errorf("mboxzilla: no --file given")
	}

	var logWriter *os.File
	pretty := true
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("mboxzilla: open log file: %w", err)
		}
		defer f.Close()
		logWriter = f
		pretty = false
	}
	logOpts := logging.Options{Pretty: pretty, RunID: uuid.NewString()}
	if logWriter != nil {
		logOpts.Writer = logWriter
	}
	logger := logging.New(logOpts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sleepBeforeStart(cfg)

	window, err := dateWindow(cfg)
	if err != nil {
		return err
	}

	for _, path := range cfg.Files {
		sinks, closers, err := buildSinks(cfg, logger)
		if err != nil {
			return err
		}

		d := driver.New(driver.Options{
			Window: window,
			Policy: classify.Policy{
				KeepInvalid:   cfg.KeepInvalid,
				KeepDeleted:   cfg.KeepDeleted,
				KeepDuplicate: cfg.KeepDuplicate,
			},
			Sinks:          sinks,
			Progress:       newTTYProgress(filepath.Base(path)),
			Logger:         logger,
			ChunkSize:      cfg.ChunkSizeBytes,
			MaxMessageSize: cfg.MaxMessageSizeBytes,
			Synchronize:    cfg.Synchronize,
			OutputDir:      cfg.OutputDir,
		})

		state, err := d.Parse(ctx, path)
		for _, c := range closers {
			c.Close()
		}
		if err != nil {
			logger.Log(ports.Error, "parse failed", map[string]any{"file": path, "error": err.Error()})
			return err
		}
		logger.Log(ports.Info, "parse complete", map[string]any{
			"file": path, "read": state.MailRead, "ok": state.MailOK,
			"invalid": state.MailInvalid, "deleted": state.MailDeleted,
			"duplicated": state.MailDuplicated, "excluded": state.MailExcluded,
			"extracted": state.MailExtracted, "compact": state.MailCompact,
			"split": state.MailSplit, "removed": state.EmlRemoved,
		})
	}
	return nil
}

func sleepBeforeStart(cfg *config.Config) {
	wait := cfg.StartWaitSeconds
	if cfg.StartRandomSeconds > 0 {
		wait += rand.IntN(cfg.StartRandomSeconds + 1)
	}
	if wait > 0 {
		time.Sleep(time.Duration(wait) * time.Second)
	}
}

func dateWindow(cfg *config.Config) (classify.Window, error) {
	var w classify.Window
	if cfg.DateAfter != "" {
		t, err := parseCLIDate(cfg.DateAfter)
		if err != nil {
			return w, fmt.Errorf("mboxzilla: --date-after: %w", err)
		}
		w.After, w.HasAfter = t, true
	}
	if cfg.DateBefore != "" {
		t, err := parseCLIDate(cfg.DateBefore)
		if err != nil {
			return w, fmt.Errorf("mboxzilla: --date-before: %w", err)
		}
		w.Before, w.HasBefore = t, true
	}
	now := time.Now().UTC()
	if cfg.AgeMinDays > 0 {
		w.Before, w.HasBefore = now.AddDate(0, 0, -cfg.AgeMinDays), true
	}
	if cfg.AgeMaxDays > 0 {
		w.After, w.HasAfter = now.AddDate(0, 0, -cfg.AgeMaxDays), true
	}
	return w, nil
}

// parseCLIDate accepts "YYYY-MM-DD HH:MM:SS" or "YYYY/MM/DD HH:MM:SS",
// matching SetDateBefore/SetDateAfter's sscanf formats in the original.
func parseCLIDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006/01/02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

type closer interface{ Close() error }

func buildSinks(cfg *config.Config, logger ports.Logger) ([]sink.Sink, []closer, error) {
	var sinks []sink.Sink
	var closers []closer

	if cfg.Extract {
		if cfg.OutputDir == "" {
			return nil, nil, fmt.Errorf("mboxzilla: --extract requires --output-dir")
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("mboxzilla: %w", err)
		}
		eml := &sink.EML{Dir: cfg.OutputDir, Gzip: cfg.Gzip, CRLF: cfg.CRLF}
		sinks = append(sinks, eml)
	}
	if cfg.Compact {
		c, err := sink.NewCompact(filepath.Join(cfg.OutputDir, "compact"), time.Now())
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, c)
		closers = append(closers, c)
	}
	if cfg.Split {
		s := sink.NewSplit(filepath.Join(cfg.OutputDir, "split"), cfg.SplitMaxBytes, 100)
		sinks = append(sinks, s)
		closers = append(closers, s)
	}
	if cfg.UploadEndpoint != "" {
		client := upload.New(cfg.UploadEndpoint, cfg.Passphrase, logger, cfg.SpeedLimit)
		if !client.Available(context.Background()) {
			logger.Log(ports.Warning, "upload endpoint unavailable, disabling upload sink", map[string]any{"endpoint": cfg.UploadEndpoint})
		} else {
			sinks = append(sinks, &sink.Callback{Uploader: client})
		}
	}
	return sinks, closers, nil
}

// ttyProgress renders a single overwritten status line, the direct
// descendant of the original's Anim/ShowProgressBar spinner.
type ttyProgress struct {
	label string
	last  int
}

func newTTYProgress(label string) driver.Progress {
	if !isTTY(os.Stderr) {
		return noopProgressObserver{}
	}
	return &ttyProgress{label: label}
}

func (p *ttyProgress) OnProgress(bytesRead, totalBytes int64) {
	if totalBytes <= 0 {
		return
	}
	pct := int(bytesRead * 100 / totalBytes)
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(os.Stderr, "\r%s: %3d%%", p.label, pct)
	if pct == 100 {
		fmt.Fprintln(os.Stderr)
	}
}

type noopProgressObserver struct{}

func (noopProgressObserver) OnProgress(int64, int64) {}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
