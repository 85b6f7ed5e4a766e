// Package driver implements the run driver (spec component C8): it owns
// one mbox parse from open to directory synchronization, wiring the byte
// reader through the classifier, naming, and sink fan-out.
package driver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nmartinon/mboxzilla-go/internal/classify"
	"github.com/nmartinon/mboxzilla-go/internal/mbox"
	"github.com/nmartinon/mboxzilla-go/internal/message"
	"github.com/nmartinon/mboxzilla-go/internal/naming"
	"github.com/nmartinon/mboxzilla-go/internal/ports"
	"github.com/nmartinon/mboxzilla-go/internal/sink"
)

// Options configures one Driver. Sinks receives every kept message; a
// Driver does not know or care how many sinks are wired, or of what kind —
// the fan-out is entirely up to the caller (spec §4.7/§4.8).
type Options struct {
	Window         classify.Window
	Policy         classify.Policy
	Sinks          []sink.Sink
	Progress       Progress
	Logger         ports.Logger
	ChunkSize      int
	MaxMessageSize int

	// Synchronize, when set, removes previously extracted .eml/.eml.gz
	// files from OutputDir that this run did not (re)produce.
	Synchronize bool
	OutputDir   string
}

// Driver runs one parse at a time; its classifier carries duplicate-
// detection state across the whole mbox being parsed.
type Driver struct {
	opts       Options
	classifier *classify.Classifier
	gzipNames  bool
}

// New constructs a Driver.
func New(opts Options) *Driver {
	if opts.Progress == nil {
		opts.Progress = noopProgress{}
	}
	d := &Driver{opts: opts, classifier: classify.New(opts.Window, opts.Policy)}
	for _, s := range opts.Sinks {
		if eml, ok := s.(*sink.EML); ok && eml.Gzip {
			d.gzipNames = true
		}
	}
	return d
}

// Parse reads path end to end, classifying and fanning out every message.
// It returns io.EOF-free: a clean end of input yields a nil error.
func (d *Driver) Parse(ctx context.Context, path string) (RunState, error) {
	var state RunState

	f, err := os.Open(path)
	if err != nil {
		return state, eris.Wrapf(err, "driver: open %s", path)
	}
	defer f.Close()

	var total int64
	if info, statErr := f.Stat(); statErr == nil {
		total = info.Size()
	}

	r := mbox.NewReader(f, d.opts.ChunkSize, d.opts.MaxMessageSize)
	var produced []string

	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		raw, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return state, err
		}

		state.MailRead++
		d.opts.Progress.OnProgress(raw.Offset, total)

		m := message.New(string(raw.Envelope), raw.Body, raw.Offset, raw.IsLast)
		outcome := d.classifier.Classify(m)

		switch {
		case !outcome.Valid:
			state.MailInvalid++
		case outcome.Excluded:
			state.MailExcluded++
		default:
			state.MailOK++
		}
		if outcome.Deleted {
			state.MailDeleted++
		}
		if outcome.Duplicate {
			state.MailDuplicated++
		}

		if !outcome.Keep {
			continue
		}

		name := naming.Filename(outcome.Date.Time, outcome.Valid, outcome.Digest, naming.Options{
			Deleted:     outcome.Deleted,
			DuplicateOf: outcome.DuplicateIndex,
			Gzip:        d.gzipNames,
		})
		produced = append(produced, name)

		entry := sink.Entry{Name: name, Envelope: m.Envelope, Raw: m.Raw, Newline: m.Newline}
		for _, s := range d.opts.Sinks {
			if writeErr := s.Write(entry); writeErr != nil {
				d.logWarn("sink write failed", map[string]any{"name": name, "error": writeErr.Error()})
				continue
			}
			switch s.(type) {
			case *sink.EML:
				state.MailExtracted++
			case *sink.Compact:
				state.MailCompact++
			case *sink.Split:
				state.MailSplit++
			}
		}
	}

	if d.opts.Synchronize && d.opts.OutputDir != "" {
		removed, err := synchronize(d.opts.OutputDir, produced)
		if err != nil {
			d.logWarn("directory synchronization failed", map[string]any{"error": err.Error()})
		}
		state.EmlRemoved = removed
	}

	return state, nil
}

func (d *Driver) logWarn(msg string, fields map[string]any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Log(ports.Warning, msg, fields)
	}
}

// synchronize removes any .eml/.eml.gz file in dir whose full file name
// (extension included) is not in keep, mirroring the original's
// set_difference(vListDirectory, emlList) cleanup pass.
func synchronize(dir string, keep []string) (int, error) {
	want := make(map[string]bool, len(keep))
	for _, name := range keep {
		want[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, eris.Wrapf(err, "driver: read dir %s", dir)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".eml") && !strings.HasSuffix(name, ".eml.gz") {
			continue
		}
		if want[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, eris.Wrapf(err, "driver: remove %s", name)
		}
		removed++
	}
	return removed, nil
}
