// Package logging implements the ports.Logger port on top of
// github.com/rs/zerolog (spec §4.9/§6.4's six severities: ERROR, WARNING,
// INFO, and the V1/V2/V3 verbosity stream).
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/nmartinon/mboxzilla-go/internal/ports"
)

// Logger adapts zerolog to the ports.Logger interface.
type Logger struct {
	l zerolog.Logger
}

// Options configures the Logger's destination and format.
type Options struct {
	// Writer is where log lines go. Defaults to os.Stderr.
	Writer io.Writer
	// Pretty selects zerolog's human-readable ConsoleWriter instead of
	// JSON lines; set for a TTY run, unset when --log-file is used so
	// output stays machine-parseable.
	Pretty bool
	// RunID is attached to every log line (spec: correlate a batch run).
	RunID string
}

// New constructs a Logger.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	if opts.RunID != "" {
		l = l.With().Str("run_id", opts.RunID).Logger()
	}
	return &Logger{l: l}
}

// Log implements ports.Logger. V1/V2/V3 all map to zerolog's Debug level
// (zerolog has no native multi-tier debug stream) with an incrementing
// "verbosity" field so -v 3 output can still be filtered from -v 1 output.
func (lg *Logger) Log(sev ports.Severity, msg string, fields map[string]any) {
	var ev *zerolog.Event
	switch sev {
	case ports.Error:
		ev = lg.l.Error()
	case ports.Warning:
		ev = lg.l.Warn()
	case ports.Info:
		ev = lg.l.Info()
	case ports.Verbose1:
		ev = lg.l.Debug().Int("verbosity", 1)
	case ports.Verbose2:
		ev = lg.l.Debug().Int("verbosity", 2)
	case ports.Verbose3:
		ev = lg.l.Debug().Int("verbosity", 3)
	default:
		ev = lg.l.Info()
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
