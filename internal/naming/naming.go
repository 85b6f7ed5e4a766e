// Package naming implements message identity and filename construction
// (spec component C6): the MD5 digest used both to detect duplicates and to
// name output files, and the "<timestamp>_<digest>.eml[.gz]" scheme with its
// del_/dupK_ prefixes.
package naming

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/nmartinon/mboxzilla-go/internal/message"
)

// Digest computes a message's identity hash: the MD5 of its Message-ID
// header when present and non-blank, else the MD5 of its full raw body
// (everything after the envelope line). This mirrors EmlFilename in the
// original mboxzilla: Message-ID is preferred because two copies of the
// same message can pick up different Received: trails or X-Mozilla-Status
// bits across mailbox exports, but a client-assigned Message-ID is stable.
func Digest(hdr *message.Header, raw []byte) [16]byte {
	if id, ok := hdr.Get("Message-ID"); ok {
		if id = strings.TrimSpace(id); id != "" {
			return md5.Sum([]byte(id))
		}
	}
	return BodyDigest(raw)
}

// BodyDigest is the MD5 of a message's full raw body (everything after the
// envelope line), unconditionally ignoring Message-ID. Invalid retained
// messages are always named from this, per spec §4.6/the original
// StoreEML: a message with no usable Date: still gets its identity from
// its bytes, not from a header field that played no part in classifying it
// as invalid in the first place.
func BodyDigest(raw []byte) [16]byte {
	return md5.Sum(raw)
}

// invalidTimestamp is the fixed placeholder used in place of a real
// timestamp when a message's date could not be resolved at all.
const invalidTimestamp = "00000000000000"

// Options controls the optional prefixes and extension applied by Filename.
type Options struct {
	// Deleted prefixes the name with "del_".
	Deleted bool
	// DuplicateOf is >0 when this message is the k-th duplicate of an
	// earlier one; it prefixes the name with "dupK_".
	DuplicateOf int
	// Gzip appends ".gz" to the ".eml" extension.
	Gzip bool
}

// Filename builds the "<timestamp>_<digest>.eml[.gz]" name for a message.
// valid selects between the resolved date's local-time rendering and the
// fixed invalid-message placeholder.
//
// Spec §4.6 renders the timestamp from the message's date rebased into the
// host's local timezone (the original's GetLocalTimeZone/mktime detour),
// so the same message's filename is not reproducible across hosts in
// different timezones — that is the literal, if host-dependent, spec
// behavior, reproduced here via time.Time.Local rather than "fixed" to a
// UTC rendering.
func Filename(date time.Time, valid bool, digest [16]byte, opts Options) string {
	ts := invalidTimestamp
	if valid {
		ts = date.Local().Format("20060102150405")
	}
	var prefix string
	switch {
	case opts.Deleted:
		prefix = "del_"
	case opts.DuplicateOf > 0:
		prefix = dupPrefix(opts.DuplicateOf)
	}
	ext := ".eml"
	if opts.Gzip {
		ext += ".gz"
	}
	return prefix + ts + "_" + hex.EncodeToString(digest[:]) + ext
}

func dupPrefix(k int) string {
	return "dup" + strconv.Itoa(k) + "_"
}
