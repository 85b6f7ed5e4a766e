// Package sink implements the sink fan-out (spec component C7): EML,
// Compact, Split and Callback outputs, each receiving every kept message
// the run driver hands it.
package sink

import "bytes"

// Entry is one message ready to be persisted by a Sink. Name is the
// filename internal/naming produced for it; Envelope and Raw are its
// original "From " line and header+body bytes, in the newline style
// Newline records.
type Entry struct {
	Name     string
	Envelope string
	Raw      []byte
	Newline  string
}

// Sink is the common interface every output implements.
type Sink interface {
	Write(e Entry) error
	Close() error
}

// normalizeCRLF rewrites raw to use CRLF line endings throughout,
// regardless of its original newline style — used by the EML sink's
// optional Windows-format output and mirrors StoreEML's CRLF rewrite in
// the original mboxzilla.
func normalizeCRLF(raw []byte) []byte {
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(raw, []byte("\n"), []byte("\r\n"))
}
