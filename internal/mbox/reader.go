package mbox

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
)

// ErrNotAnMbox is returned by Next when the source does not begin with the
// literal bytes "From " (spec §7, NotAnMbox).
var ErrNotAnMbox = eris.New("mbox: source does not begin with a valid From separator")

// Message is a single raw message as delimited by the separator finder: its
// envelope ("From ") line and the header+body bytes that follow, up to (but
// not including) the next envelope line or EOF.
type Message struct {
	// Envelope is the "From " line, without the leading/trailing newline.
	Envelope []byte
	// Body is everything after the envelope line's newline, up to the next
	// separator or EOF. It still contains the raw header block and message
	// body, unparsed.
	Body []byte
	// Offset is the absolute byte offset of Envelope's first byte within
	// the source.
	Offset int64
	// IsLast reports whether this message is the final one in the mbox
	// (the source reached EOF without finding a further separator).
	IsLast bool
}

// Reader streams Messages out of an mbox-formatted source (components C1
// and C2: byte reader + separator finder), hiding the sliding window used
// to bound memory use.
type Reader struct {
	w       *window
	pos     int64 // absolute offset of w.buf[0] within the source
	started bool
	done    bool
}

// NewReader constructs a Reader over r. chunkSize and maxMessageSize bound
// the resident window (spec §5); a zero value picks the package default /
// a generous cap respectively.
func NewReader(r io.Reader, chunkSize, maxMessageSize int) *Reader {
	return &Reader{w: newWindow(r, chunkSize, maxMessageSize)}
}

// Next returns the next message, or io.EOF once the source is exhausted.
// The first call validates that the source begins with the literal bytes
// "From " (the date qualifier is not applied to the first line), returning
// ErrNotAnMbox otherwise.
func (rd *Reader) Next() (*Message, error) {
	if rd.done {
		return nil, io.EOF
	}
	if !rd.started {
		if err := rd.start(); err != nil {
			return nil, err
		}
	}
	return rd.next()
}

func (rd *Reader) start() error {
	rd.started = true
	if _, err := rd.w.fillAtLeast(len(sepMarker)); err != nil {
		return err
	}
	if !bytes.HasPrefix(rd.w.bytes(), []byte("From ")) {
		rd.done = true
		return ErrNotAnMbox
	}
	return nil
}

func (rd *Reader) next() (*Message, error) {
	for {
		buf := rd.w.bytes()
		if len(buf) == 0 {
			rd.done = true
			return nil, io.EOF
		}
		envEnd := bytes.IndexByte(buf, '\n')
		if envEnd == -1 {
			if rd.w.atEOF() {
				envEnd = len(buf)
			} else {
				if err := rd.w.fill(); err != nil {
					return nil, err
				}
				continue
			}
		}
		boundary, found := findSeparator(buf, envEnd)
		if !found {
			if rd.w.atEOF() {
				boundary = len(buf)
			} else {
				if err := rd.w.fill(); err != nil {
					return nil, err
				}
				continue
			}
		}
		envLine := buf[:envEnd]
		envLine = bytes.TrimSuffix(envLine, []byte("\r"))
		msgOffset := rd.pos
		consumeLen := boundary
		if found {
			consumeLen++ // also drop the '\n' that precedes the next "From "
		}
		all := rd.w.consume(consumeLen)
		raw := all
		rd.pos += int64(len(all))
		bodyStart := envEnd + 1
		if bodyStart > len(raw) {
			bodyStart = len(raw)
		}
		isLast := rd.w.atEOF() && rd.w.len() == 0
		if isLast {
			rd.done = true
		}
		return &Message{
			Envelope: envLine,
			Body:     raw[bodyStart:],
			Offset:   msgOffset,
			IsLast:   isLast,
		}, nil
	}
}
