// Package intent classifies chat queries and pulls the search location out of them.
package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Intent is the coarse classification of a user query.
type Intent string

const (
	// Event routes the query to event providers.
	Event Intent = "event"
	// Job routes the query to the job-capable provider.
	Job Intent = "job"
	// General triggers no provider call.
	General Intent = "general"
)

// IsValid reports whether i is a known intent.
func (i Intent) IsValid() bool {
	switch i {
	case Event, Job, General:
		return true
	}
	return false
}

// GlobalLocation is returned when no known city is mentioned.
const GlobalLocation = "Global"

// Vocabularies. Order matters for cities: the first match wins.
var (
	eventTerms = []string{
		"event", "events", "concert", "meetup",
		"festival", "conference", "show", "things to do",
	}
	jobTerms = []string{"job", "jobs", "hiring", "career", "vacancy"}
	cities   = []string{
		"london", "berlin", "paris", "new york",
		"toronto", "jaipur", "delhi", "mumbai",
	}
)

// Extraction is the outcome of analysing a single query.
type Extraction struct {
	Intent   Intent
	Location string
	Topic    string
}

// Extractor matches queries against ordered keyword vocabularies.
type Extractor struct {
	eventTerms []string
	jobTerms   []string
	cities     []string
}

// Default returns an extractor over the built-in vocabularies.
func Default() *Extractor {
	return NewExtractor()
}

// NewExtractor returns an extractor whose city list is the built-in one followed by extraCities.
// Blank and duplicate entries are skipped.
func NewExtractor(extraCities ...string) *Extractor {
	known := make([]string, 0, len(cities)+len(extraCities))
	seen := make(map[string]bool, cap(known))
	for _, c := range append(append([]string{}, cities...), extraCities...) {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		known = append(known, c)
	}
	return &Extractor{
		eventTerms: eventTerms,
		jobTerms:   jobTerms,
		cities:     known,
	}
}

// Extract runs intent detection, location extraction and topic sanitization.
func (e *Extractor) Extract(query string) Extraction {
	loc := e.ExtractLocation(query)
	return Extraction{
		Intent:   e.DetectIntent(query),
		Location: loc,
		Topic:    SanitizeTopic(query, loc),
	}
}

// DetectIntent returns Event if any event term occurs in the query, else Job
// if any job term does, else General. Matching is case-insensitive substring search.
func (e *Extractor) DetectIntent(query string) Intent {
	q := strings.ToLower(query)
	if containsAny(q, e.eventTerms) {
		return Event
	}
	if containsAny(q, e.jobTerms) {
		return Job
	}
	return General
}

// ExtractLocation returns the first known city found in the query, title-cased,
// or GlobalLocation.
func (e *Extractor) ExtractLocation(query string) string {
	q := strings.ToLower(query)
	for _, c := range e.cities {
		if strings.Contains(q, c) {
			// Casers keep state, so one per call.
			return cases.Title(language.English).String(c)
		}
	}
	return GlobalLocation
}

// SanitizeTopic lower-cases the query and drops the first "in <location>" phrase.
func SanitizeTopic(query, location string) string {
	q := strings.ToLower(query)
	phrase := "in " + strings.ToLower(location)
	return strings.TrimSpace(strings.Replace(q, phrase, "", 1))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
