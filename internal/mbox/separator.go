package mbox

import "bytes"

var sepMarker = []byte("\nFrom ")

var weekdays = map[string]bool{
	"sun": true, "mon": true, "tue": true, "wed": true,
	"thu": true, "fri": true, "sat": true,
}

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var daysInMonth = [...]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// qualifiesAsSeparator implements the permissive-asctime boundary heuristic
// (spec §4.2): given the bytes that follow "From " up to (not including) the
// line's trailing newline, it decides whether the sender token is followed
// by exactly five whitespace-separated asctime fields that form a calendar
// date that could actually exist.
//
// The original mboxzilla.cpp (GetMailDate/FindMailSeparator) tolerates extra
// trailing tokens after the date; this port requires exactly five, matching
// spec.md's literal wording.
func qualifiesAsSeparator(afterFrom []byte) bool {
	fields := bytes.Fields(afterFrom)
	if len(fields) < 2 {
		return false
	}
	// fields[0] is the sender; the remaining tokens must be exactly the
	// five asctime fields.
	rest := fields[1:]
	if len(rest) != 5 {
		return false
	}
	wd, mon, day, clock, year := rest[0], rest[1], rest[2], rest[3], rest[4]
	if !weekdays[lower3(wd)] {
		return false
	}
	m, ok := months[lower3(mon)]
	if !ok {
		return false
	}
	d, ok := atoiStrict(day)
	if !ok || d < 1 || d > 31 {
		return false
	}
	if !isClockLike(clock) {
		return false
	}
	y, ok := atoiStrict(year)
	if !ok || y < 1 {
		return false
	}
	return legalDate(y, m, d)
}

func legalDate(year, month, day int) bool {
	if month < 1 || month > 12 {
		return false
	}
	max := daysInMonth[month-1]
	if month == 2 && !isLeap(year) {
		max = 28
	}
	return day >= 1 && day <= max
}

func lower3(b []byte) string {
	if len(b) < 3 {
		return ""
	}
	out := make([]byte, 3)
	for i := 0; i < 3; i++ {
		c := b[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func atoiStrict(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// isClockLike reports whether b looks like hh:mm:ss (each component
// numeric, not range-checked here; the full range check happens when a
// header Date: field is resolved, not at the boundary-heuristic stage).
func isClockLike(b []byte) bool {
	parts := bytes.Split(b, []byte(":"))
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if _, ok := atoiStrict(p); !ok {
			return false
		}
	}
	return true
}

// findSeparator scans buf for the next qualifying "\nFrom " envelope line,
// starting no earlier than byte offset `from`. It returns the offset of the
// '\n' that precedes the envelope line (i.e. the exclusive end of the
// current message) and true, or (0, false) if no qualifying separator is
// present in the buffered data yet.
//
// buf must represent the content of a message that has already begun (its
// own leading "From " line already consumed by the caller); findSeparator
// never matches at offset 0.
func findSeparator(buf []byte, from int) (boundary int, found bool) {
	search := from
	for {
		idx := bytes.Index(buf[search:], sepMarker)
		if idx == -1 {
			return 0, false
		}
		idx += search
		lineEnd := bytes.IndexByte(buf[idx+len(sepMarker):], '\n')
		if lineEnd == -1 {
			// Envelope line not fully buffered; caller should fill more.
			return 0, false
		}
		lineEnd += idx + len(sepMarker)
		line := buf[idx+1 : lineEnd]
		line = bytes.TrimSuffix(line, []byte("\r"))
		if qualifiesAsSeparator(line[len("From "):]) {
			return idx, true
		}
		search = idx + 1
	}
}
