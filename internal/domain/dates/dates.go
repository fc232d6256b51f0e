// Package dates normalizes provider date strings into canonical YYYY-MM-DD form.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical date layout. It is fixed-width and zero-padded, so
// lexicographic comparison matches chronological order.
const Layout = "2006-01-02"

var (
	ordinalRe      = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)`)
	isoRe          = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dayMonthYearRe = regexp.MustCompile(
		`(?i)(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s*,?\s*(\d{4})`)
	monthDayRe = regexp.MustCompile(
		`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Normalizer parses heterogeneous provider dates.
//
// Providers have been seen reporting current-year events with a far-future
// year. Any year above the validity window's max year is treated as that bug
// and pulled back into the window.
type Normalizer struct {
	maxYear int
	now     func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithMaxYear pins the last valid year. Zero keeps the rolling default of current year + 1.
func WithMaxYear(year int) Option {
	return func(n *Normalizer) { n.maxYear = year }
}

// New creates a Normalizer with a rolling [current year, current year+1] window.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Today returns the current date in canonical form.
func (n *Normalizer) Today() string {
	return n.now().Format(Layout)
}

// MaxYear returns the last year of the validity window.
func (n *Normalizer) MaxYear() int {
	return n.maxYearAt(n.now())
}

func (n *Normalizer) maxYearAt(now time.Time) int {
	if n.maxYear > 0 {
		return n.maxYear
	}
	return now.Year() + 1
}

// Parse returns the canonical form of raw, or false if no known format matches.
func (n *Normalizer) Parse(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	now := n.now()
	maxYear := n.maxYearAt(now)
	s = ordinalRe.ReplaceAllString(s, "$1")

	if m := isoRe.FindStringSubmatch(s); m != nil {
		if d, ok := parseISO(m, now, maxYear); ok {
			return d, true
		}
	}

	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if year > maxYear {
			year = now.Year()
		}
		if d, ok := canonical(year, months[strings.ToLower(m[2])], atoi(m[1])); ok {
			return d, true
		}
	}

	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		month, day := months[strings.ToLower(m[1])], atoi(m[2])
		d, ok := canonical(now.Year(), month, day)
		if !ok {
			return "", false
		}
		if d < now.Format(Layout) {
			return canonical(min(now.Year()+1, maxYear), month, day)
		}
		return d, true
	}

	return "", false
}

func parseISO(m []string, now time.Time, maxYear int) (string, bool) {
	year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	if year > maxYear {
		if month >= int(now.Month()) {
			year = now.Year()
		} else {
			year = now.Year() + 1
		}
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// canonical formats a calendar date, rejecting days that do not exist in the month.
func canonical(year int, month time.Month, day int) (string, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return "", false
	}
	return t.Format(Layout), true
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
