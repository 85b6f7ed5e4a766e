package sink

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// ErrMessageTooLarge is returned when a single message exceeds the split
// sink's maximum part size — it can never fit in any part, so the sink
// aborts rather than silently truncating it.
var ErrMessageTooLarge = eris.New("mbox: message exceeds split sink's max part size")

// Split writes messages into a sequence of size-bounded mbox parts named
// "<basename>.<NN>", opening a new part once the current one would exceed
// MaxBytes. Like Compact, a write failure latches the sink disabled.
type Split struct {
	BaseName string
	MaxBytes int64

	pad        int
	partIndex  int
	cur        *os.File
	curSize    int64
	disabled   bool
}

// NewSplit constructs a Split sink. estimatedParts sizes the zero-padding
// of part numbers (the number of decimal digits in estimatedParts, minimum
// 2) so that
// e.g. a 40-part run gets ".01".."40" rather than ".1".."40"; it need not be
// exact, only large enough that numbers don't overflow the padding.
func NewSplit(baseName string, maxBytes int64, estimatedParts int) *Split {
	pad := len(strconv.Itoa(estimatedParts))
	if pad < 2 {
		pad = 2
	}
	return &Split{BaseName: baseName, MaxBytes: maxBytes, pad: pad}
}

func (s *Split) partName() string {
	return fmt.Sprintf("%s.%0*d", s.BaseName, s.pad, s.partIndex)
}

func (s *Split) rotate() error {
	if s.cur != nil {
		if err := s.cur.Close(); err != nil {
			return eris.Wrapf(err, "mbox: close split part %s", s.partName())
		}
	}
	s.partIndex++
	f, err := os.Create(s.partName())
	if err != nil {
		return eris.Wrapf(err, "mbox: create split part %s", s.partName())
	}
	s.cur = f
	s.curSize = 0
	return nil
}

func (s *Split) Write(e Entry) error {
	if s.disabled {
		return nil
	}
	need := int64(len(e.Envelope)+len(e.Newline)) + int64(len(e.Raw))
	if need > s.MaxBytes {
		s.disabled = true
		return ErrMessageTooLarge
	}
	if s.cur == nil || (s.curSize > 0 && s.curSize+need > s.MaxBytes) {
		if err := s.rotate(); err != nil {
			s.disabled = true
			return err
		}
	}
	n1, err := s.cur.WriteString(e.Envelope + e.Newline)
	if err != nil {
		s.disabled = true
		return eris.Wrapf(err, "mbox: write envelope to %s", s.partName())
	}
	n2, err := s.cur.Write(e.Raw)
	if err != nil {
		s.disabled = true
		return eris.Wrapf(err, "mbox: write body to %s", s.partName())
	}
	s.curSize += int64(n1 + n2)
	return nil
}

func (s *Split) Close() error {
	if s.cur == nil {
		return nil
	}
	return s.cur.Close()
}

// PartCount reports how many part files have been created so far.
func (s *Split) PartCount() int { return s.partIndex }
