// Package dateresolve implements the date resolver (spec component C4): it
// turns a message's Date: header, or failing that one of its Received:
// headers, into an absolute instant.
package dateresolve

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nmartinon/mboxzilla-go/internal/message"
)

// Source identifies which header field a Resolve call's Time ultimately
// came from.
type Source int

const (
	// SourceNone means resolution failed entirely.
	SourceNone Source = iota
	// SourceDate means the Date: header parsed on the first attempt.
	SourceDate
	// SourceDateNormalized means Date: only parsed after dash-normalizing
	// its first two tokens (a handful of malformed mailers write
	// "12-Mar-2024" where "12 Mar 2024" is expected).
	SourceDateNormalized
	// SourceReceived means Date: never parsed and the last Received:
	// header's date clause (the text after its final ';') was used
	// instead.
	SourceReceived
)

// Result is the outcome of resolving a message's date.
type Result struct {
	Time   time.Time
	Source Source
}

// Valid reports whether resolution produced a usable time.
func (r Result) Valid() bool { return r.Source != SourceNone }

// Resolve implements the fallback chain described in spec §4.4:
// Date: as given, then Date: with its first two tokens' dashes turned to
// spaces, then the last Received: header's trailing date clause, else
// failure.
func Resolve(hdr *message.Header) Result {
	if v, ok := hdr.Get("Date"); ok {
		if t, ok := parseMailDate(v); ok {
			return Result{Time: t, Source: SourceDate}
		}
		if t, ok := parseMailDate(dashNormalize(v)); ok {
			return Result{Time: t, Source: SourceDateNormalized}
		}
	}
	if v, ok := hdr.GetIndexed("Received", -1); ok {
		if clause, ok := lastSemicolonClause(v); ok {
			if t, ok := parseMailDate(clause); ok {
				return Result{Time: t, Source: SourceReceived}
			}
		}
	}
	return Result{}
}

func lastSemicolonClause(received string) (string, bool) {
	idx := strings.LastIndexByte(received, ';')
	if idx == -1 {
		return "", false
	}
	return strings.TrimSpace(received[idx+1:]), true
}

// dashNormalize replaces '-' with ' ' in the first two whitespace-separated
// tokens of v (mirrors GetMailDate's retry of e.g. "Mon, 12-Mar-2024").
func dashNormalize(v string) string {
	fields := strings.Fields(v)
	for i := 0; i < len(fields) && i < 2; i++ {
		fields[i] = strings.ReplaceAll(fields[i], "-", " ")
	}
	return strings.Join(fields, " ")
}

var sanitizer = transform.Chain(
	charmap.Windows1252.NewDecoder(),
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
	runes.Remove(runes.Predicate(func(r rune) bool { return r < 0x20 || r == 0x7f })),
)

// sanitize strips stray Windows-1252 bytes and control characters from a
// header value before the asctime-style tokenizer runs over it. mbox files
// produced by older, non-English mail clients occasionally leave one or two
// non-ASCII bytes in a Date: or Received: value, which is enough to break
// naive whitespace tokenization.
func sanitize(raw string) string {
	out, _, err := transform.String(sanitizer, raw)
	if err != nil {
		return raw
	}
	return out
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// parseMailDate implements the original GetMailDate tokenizer: split on
// whitespace, skip a leading weekday token if present, then read
// day/month/year/time/timezone positionally. It is deliberately more
// permissive than RFC 5322's grammar, matching mbox files produced by a
// long tail of non-conformant mail clients.
func parseMailDate(raw string) (time.Time, bool) {
	fields := strings.Fields(sanitize(raw))
	if len(fields) == 0 {
		return time.Time{}, false
	}
	dayIndex := 1
	if isAllDigits(fields[0]) {
		dayIndex = 0
	}
	if len(fields) < dayIndex+4 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(fields[dayIndex])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := months[strings.ToLower(truncate(fields[dayIndex+1], 3))]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[dayIndex+2])
	if err != nil {
		return time.Time{}, false
	}
	year = normalizeTwoDigitYear(year)

	timeTok := fields[dayIndex+3]
	if !strings.Contains(timeTok, ":") {
		return time.Time{}, false
	}
	hh, mm, ss, ok := parseClock(timeTok)
	if !ok {
		return time.Time{}, false
	}

	tzOffset := 0
	if len(fields) > dayIndex+4 {
		tzOffset = parseTZOffset(fields[dayIndex+4])
	}

	if !legalDate(year, int(month), day) || !legalTime(hh, mm, ss) {
		return time.Time{}, false
	}

	// Build the instant directly in its stated offset. This is
	// mathematically equivalent to the original's detour through the
	// host's local timezone (GetLocalTimeZone/mktime): the original adds
	// the host offset into the broken-down time and then has mktime
	// subtract that same offset back out when converting to epoch, so the
	// host timezone cancels and the result is the same absolute instant
	// either way. Going straight to a FixedZone instant is simpler and,
	// unlike the original, independent of the host's configured timezone.
	loc := time.FixedZone("", tzOffset)
	t := time.Date(year, month, day, hh, mm, ss, 0, loc)
	return t, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// normalizeTwoDigitYear repairs a two-digit year: 0-89 resolve to 2000-2089
// (so 89 resolves to 2089) and 90-99 resolve to 1990-1999. Years of three
// or more digits are returned unmodified.
func normalizeTwoDigitYear(year int) int {
	if year < 90 {
		return year + 2000
	}
	if year < 100 {
		return year + 1900
	}
	return year
}

func parseClock(tok string) (hh, mm, ss int, ok bool) {
	parts := strings.Split(tok, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	var err error
	if hh, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, false
	}
	if mm, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, false
	}
	if len(parts) == 3 {
		if ss, err = strconv.Atoi(parts[2]); err != nil {
			return 0, 0, 0, false
		}
	}
	return hh, mm, ss, true
}

func legalTime(hh, mm, ss int) bool {
	return hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59 && ss >= 0 && ss <= 60
}

func legalDate(year, month, day int) bool {
	if month < 1 || month > 12 {
		return false
	}
	days := [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	max := days[month-1]
	if month == 2 && (year%4 == 0 && (year%100 != 0 || year%400 == 0)) {
		max = 29
	}
	return day >= 1 && day <= max
}

// parseTZOffset parses a "+hhmm"/"-hhmm"/"hhmm" timezone token into
// offset seconds east of UTC. An unparseable token is treated as +0000,
// matching the original's atoi-on-garbage-yields-zero behavior.
func parseTZOffset(tok string) int {
	sign := 1
	if strings.HasPrefix(tok, "+") {
		tok = tok[1:]
	} else if strings.HasPrefix(tok, "-") {
		sign = -1
		tok = tok[1:]
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0
	}
	hours := v / 100
	minutes := v % 100
	return sign * (hours*3600 + minutes*60)
}
