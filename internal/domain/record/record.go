// Package record defines the normalized listing shared by all providers.
package record

import "strings"

// Type is the listing kind.
type Type string

const (
	// Events are dated listings (concerts, meetups, festivals).
	Events Type = "events"
	// Jobs are job postings.
	Jobs Type = "jobs"
)

// DefaultTimezone is stamped on every record.
const DefaultTimezone = "UTC"

// Record is a single listing. Empty strings mean the provider had no value.
type Record struct {
	ID          string
	Type        Type
	Title       string
	Poster      string
	StartDate   string // YYYY-MM-DD
	StartTime   string // HH:MM
	Timezone    string
	Venue       string
	Address     string
	Price       string
	Source      string
	URL         string
	Company     string
	Description string
}

// aggregatorPaths mark generic search-results pages rather than listing detail pages.
var aggregatorPaths = []string{
	"google.com/search",
	"google.com/url",
	"google.com/maps/search",
}

// IsAggregatorURL reports whether u points at a search-results page.
func IsAggregatorURL(u string) bool {
	for _, p := range aggregatorPaths {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

// HasHTTPLink reports whether u is an absolute http(s) link.
func HasHTTPLink(u string) bool {
	return strings.HasPrefix(u, "http")
}

// IsDetailLink reports whether u can be shown to the user as a listing link.
func IsDetailLink(u string) bool {
	return HasHTTPLink(u) && !IsAggregatorURL(u)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FirstNonEmpty returns the first non-blank value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
