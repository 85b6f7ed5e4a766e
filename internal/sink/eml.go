package sink

import (
	"compress/gzip"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// EML writes each message to its own file under Dir, named per
// internal/naming. It is idempotent: an existing file of the same name is
// left untouched and Write returns nil, matching spec §4.7's rule that a
// re-run never rewrites a file it already produced.
type EML struct {
	Dir  string
	Gzip bool
	// CRLF rewrites the stored message to use CRLF line endings
	// throughout (the "Windows format" output option), regardless of the
	// source mbox's own newline style.
	CRLF bool
}

func (s *EML) Write(e Entry) error {
	path := filepath.Join(s.Dir, e.Name)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "mbox: stat %s", path)
	}

	// Spec §4.7: the EML sink stores body_start..end, skipping the
	// envelope line entirely — unlike Compact/Split, which keep it.
	payload := e.Raw
	if s.CRLF {
		payload = normalizeCRLF(payload)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mbox: create %s", path)
	}
	defer f.Close()

	if s.Gzip {
		gw := gzip.NewWriter(f)
		if _, err := gw.Write(payload); err != nil {
			return eris.Wrapf(err, "mbox: write %s", path)
		}
		return eris.Wrapf(gw.Close(), "mbox: close gzip writer for %s", path)
	}

	if _, err := f.Write(payload); err != nil {
		return eris.Wrapf(err, "mbox: write %s", path)
	}
	return nil
}

func (s *EML) Close() error { return nil }
