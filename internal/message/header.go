// Package message implements the header extractor (spec component C3): the
// header/body split and the case-sensitive-then-insensitive, indexed field
// lookup used by the date resolver and classifier.
package message

import (
	"bytes"
	"strings"
)

// Field is a single unfolded header field in source order.
type Field struct {
	Name  string
	Value string
}

// Header is the parsed header block of one message. Lookups prefer an exact
// case match (cheap map hit) and fall back to a case-insensitive one; the
// two are semantically equivalent unless a message uses inconsistent
// casing for the same field name more than once.
type Header struct {
	fields []Field
	exact  map[string][]int
	ci     map[string][]int
}

func newHeader() *Header {
	return &Header{exact: map[string][]int{}, ci: map[string][]int{}}
}

func (h *Header) add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
	i := len(h.fields) - 1
	h.exact[name] = append(h.exact[name], i)
	lname := strings.ToLower(name)
	h.ci[lname] = append(h.ci[lname], i)
}

// Fields returns all parsed fields in source order.
func (h *Header) Fields() []Field { return h.fields }

// Get returns the first occurrence of name.
func (h *Header) Get(name string) (string, bool) {
	return h.GetIndexed(name, 0)
}

// GetIndexed returns the k-th occurrence of name (0-based). A negative k
// counts from the end, so -1 is the last occurrence — used by the date
// resolver's "last Received:" fallback.
func (h *Header) GetIndexed(name string, k int) (string, bool) {
	idxs := h.indices(name)
	if len(idxs) == 0 {
		return "", false
	}
	i := k
	if i < 0 {
		i = len(idxs) + i
	}
	if i < 0 || i >= len(idxs) {
		return "", false
	}
	return h.fields[idxs[i]].Value, true
}

// All returns every value for name, in source order.
func (h *Header) All(name string) []string {
	idxs := h.indices(name)
	if idxs == nil {
		return nil
	}
	out := make([]string, len(idxs))
	for j, i := range idxs {
		out[j] = h.fields[i].Value
	}
	return out
}

func (h *Header) indices(name string) []int {
	if idxs, ok := h.exact[name]; ok {
		return idxs
	}
	return h.ci[strings.ToLower(name)]
}

// ParseHeader splits raw (the bytes following a message's envelope line)
// into a Header and the offset at which the body begins. It tolerates both
// LF and CRLF line endings, deciding per-message which one is in use (mbox
// files can mix messages using either), and handles RFC 5322 §2.2.3 header
// folding: a line beginning with a space or tab is a continuation of the
// previous field, appended after trimming.
//
// A header block with no blank-line terminator (the message ends mid
// header, or has no body at all) is not an error: bodyOffset is returned as
// len(raw) and every field seen is still recorded.
func ParseHeader(raw []byte) (hdr *Header, bodyOffset int, newline string) {
	hdr = newHeader()
	newline = "\n"
	pos := 0
	var curName, curVal string
	haveCur := false

	flush := func() {
		if haveCur {
			hdr.add(curName, strings.TrimRight(curVal, " \t"))
			haveCur = false
		}
	}

	for {
		nl := bytes.IndexByte(raw[pos:], '\n')
		if nl == -1 {
			flush()
			return hdr, len(raw), newline
		}
		lineEnd := pos + nl
		line := raw[pos:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			newline = "\r\n"
			line = line[:len(line)-1]
		}
		pos = lineEnd + 1

		if len(line) == 0 {
			flush()
			return hdr, pos, newline
		}
		if line[0] == ' ' || line[0] == '\t' {
			if haveCur {
				curVal += " " + strings.TrimSpace(string(line))
			}
			continue
		}
		flush()
		idx := bytes.IndexByte(line, ':')
		if idx == -1 {
			// Not a field line (malformed header); drop it rather than
			// misparse a body line as a header.
			continue
		}
		curName = string(line[:idx])
		curVal = strings.TrimSpace(string(line[idx+1:]))
		haveCur = true
	}
}
