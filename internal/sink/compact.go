package sink

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Compact appends every message it receives to a single mbox file named
// "<basename>_<run start, UTC, YYYYMMDDhhmmss>". Once a write fails it
// latches disabled and silently drops further writes rather than producing
// a half-written, unreadable mbox — mirroring bDisableMboxCompact in the
// original mboxzilla.
type Compact struct {
	Path string

	f        *os.File
	disabled bool
}

// NewCompact opens (creating if necessary) the compact output file for a
// run that started at runStart.
func NewCompact(baseName string, runStart time.Time) (*Compact, error) {
	path := baseName + "_" + runStart.UTC().Format("20060102150405")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "mbox: open compact file %s", path)
	}
	return &Compact{Path: path, f: f}, nil
}

func (c *Compact) Write(e Entry) error {
	if c.disabled {
		return nil
	}
	if _, err := c.f.WriteString(e.Envelope + e.Newline); err != nil {
		c.disabled = true
		return eris.Wrapf(err, "mbox: write envelope to %s", c.Path)
	}
	if _, err := c.f.Write(e.Raw); err != nil {
		c.disabled = true
		return eris.Wrapf(err, "mbox: write body to %s", c.Path)
	}
	return nil
}

func (c *Compact) Close() error {
	if c.f == nil {
		return nil
	}
	return c.f.Close()
}
