// Package mbox implements the streaming byte reader and "From " envelope
// separator finder (spec components C1 and C2): a sliding window over an
// mbox file and the heuristic that decides where one message ends and the
// next begins.
package mbox

import (
	"io"

	"github.com/rotisserie/eris"
)

// DefaultChunkSize is the amount read from the source in one Fill, matching
// the ~1 MiB chunking described for the byte reader.
const DefaultChunkSize = 1 << 20

// ErrOverflow is returned when a single message would need more than the
// window's capacity to be fully buffered (spec §5, "resource bounds").
var ErrOverflow = eris.New("mbox: message exceeds window capacity")

// window is an append/consume byte buffer backing the parser. Its invariant
// is that it always holds the suffix of the mbox whose earliest byte is the
// start of an unemitted message, or is empty once the source is drained.
type window struct {
	r         io.Reader
	chunkSize int
	capBytes  int // max_message_size + chunk_size
	buf       []byte
	eof       bool
}

func newWindow(r io.Reader, chunkSize, maxMessageSize int) *window {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxMessageSize <= 0 {
		maxMessageSize = 64 << 20 // 64 MiB, generous default cap
	}
	return &window{r: r, chunkSize: chunkSize, capBytes: maxMessageSize + chunkSize}
}

// len reports the number of bytes currently resident in the window.
func (w *window) len() int { return len(w.buf) }

// bytes returns the current window contents. The slice is only valid until
// the next fill or consume call.
func (w *window) bytes() []byte { return w.buf }

// atEOF reports whether the underlying reader has been fully drained.
func (w *window) atEOF() bool { return w.eof }

// fill reads one more chunk from the source, growing the window. It is a
// no-op once the source is exhausted.
func (w *window) fill() error {
	if w.eof {
		return nil
	}
	chunk := make([]byte, w.chunkSize)
	n, err := w.r.Read(chunk)
	if n > 0 {
		w.buf = append(w.buf, chunk[:n]...)
	}
	if len(w.buf) > w.capBytes {
		return ErrOverflow
	}
	if err != nil {
		if err == io.EOF {
			w.eof = true
			return nil
		}
		return eris.Wrap(err, "mbox: reading source")
	}
	return nil
}

// fillAtLeast ensures at least n bytes are resident in the window, issuing
// further reads as needed. It returns false (with a nil error) once the
// source is exhausted before n bytes accumulate; callers distinguish
// "not enough data yet" from "never will be" via atEOF.
func (w *window) fillAtLeast(n int) (bool, error) {
	for len(w.buf) < n && !w.eof {
		if err := w.fill(); err != nil {
			return false, err
		}
	}
	return len(w.buf) >= n, nil
}

// consume removes the first n bytes from the window and returns a copy of
// them; n is clamped to the available length.
func (w *window) consume(n int) []byte {
	if n > len(w.buf) {
		n = len(w.buf)
	}
	out := make([]byte, n)
	copy(out, w.buf[:n])
	w.buf = append(w.buf[:0], w.buf[n:]...)
	return out
}
