package shard

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LeafLayout is the time.Format layout of a leaf directory name.
const LeafLayout = "2006-01-02 15:04:05"

// Epoch is the "beginning of time" sentinel: 0001-01-01 00:00:00 UTC.
// Records written at Epoch sort before every real timestamp.
var Epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// MinYear and MaxYear bound the years that fit the 4-digit year directory.
const (
	MinYear = 1
	MaxYear = 9999
)

// Path is the encoded shard address of a timestamp.
type Path struct {
	Year  string // 4 digits
	Month string // 2 digits
	Day   string // 2 digits
	Leaf  string // LeafLayout
}

// Dirs returns the path components in nesting order.
func (p Path) Dirs() []string {
	return []string{p.Year, p.Month, p.Day, p.Leaf}
}

// Join returns the components joined with the OS path separator.
func (p Path) Join() string {
	return filepath.Join(p.Dirs()...)
}

// Encode converts t to its shard path.
// The caller is responsible for checking ValidYear first; years outside
// MinYear..MaxYear do not fit the fixed-width year directory.
func Encode(t time.Time) Path {
	t = Normalize(t)
	return Path{
		Year:  t.Format("2006"),
		Month: t.Format("01"),
		Day:   t.Format("02"),
		Leaf:  t.Format(LeafLayout),
	}
}

// LeafName returns only the leaf directory name for t.
func LeafName(t time.Time) string {
	return Normalize(t).Format(LeafLayout)
}

// Normalize returns t in UTC truncated to one-second resolution.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ValidYear reports whether t's UTC year can be encoded.
func ValidYear(t time.Time) bool {
	y := t.UTC().Year()
	return y >= MinYear && y <= MaxYear
}

// Decode parses a leaf name (or any path ending in one) back into a UTC
// timestamp. It returns false for names that are not leaf timestamps, so
// callers can use it as a filter over arbitrary directory listings.
//
// Years are taken literally: "0001" and the unpadded "1" both decode to
// year 1. There is no two-digit-year inference.
func Decode(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if t, err := time.Parse(LeafLayout, base); err == nil {
		return t, true
	}

	// Unpadded years ("1-01-01 00:00:00") from writers that did not
	// zero-pad the year.
	year, rest, ok := strings.Cut(base, "-")
	if !ok || len(year) == 0 || len(year) >= 4 || !IsDigits(year) {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(year)
	if err != nil || n < MinYear {
		return time.Time{}, false
	}
	t, err := time.Parse(LeafLayout, strings.Repeat("0", 4-len(year))+year+"-"+rest)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsDigits reports whether s is a non-empty string of ASCII decimal digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseUint parses a digit-only directory or entry name.
// It returns false for anything else, including values that overflow int64.
func ParseUint(s string) (int64, bool) {
	if !IsDigits(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
