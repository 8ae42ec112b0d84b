// Package expiry extracts a domain's expiry timestamp from free-form WHOIS
// text.
//
// WHOIS output has no common schema, so the parser is driven by three ordered
// tables: the labels that introduce an expiry value, the layouts of full
// timestamps and the layouts of bare dates. Scanning is deterministic: lines
// are visited in document order, labels in table order within a line, and the
// first layout that parses the whole candidate wins. A label whose value does
// not parse does not stop the scan.
package expiry

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Labels introduce an expiry value on a WHOIS line, highest priority first.
// Matching is a case-sensitive substring test.
var Labels = []string{ //nolint: gochecknoglobals
	"Expiry Date:",
	"Registry Expiry Date:",
	"Expiration Date:",
	"Registrar Registration Expiration Date:",
	"Expiration Time:",
	"Domain Expiration Date:",
	"Expires:",
	"Expires on:",
	"Expiry date:",
	"Expiration date:",
	"expires:",
	"paid-till:",
	"Record expires on",
	"Valid Until:",
}

// TimestampLayouts are tried first, in order. Layouts without a zone are
// interpreted as UTC. Layouts with a zone abbreviation only accept UTC and
// GMT; other abbreviations have no fixed offset and are rejected.
var TimestampLayouts = []string{ //nolint: gochecknoglobals
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05 Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006/01/02 15:04:05",
	"2-Jan-2006 15:04:05 MST",
	"2-Jan-2006 15:04:05",
	"02.01.2006 15:04:05",
	time.UnixDate,
	time.RFC1123,
}

// DateLayouts are tried once every timestamp layout has failed; the time of
// day is midnight UTC.
var DateLayouts = []string{ //nolint: gochecknoglobals
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"2-Jan-2006",
	"2 Jan 2006",
	"02.01.2006",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"20060102",
}

// Parser holds the tables used to locate and parse an expiry value. The zero
// value finds nothing; use Default or New.
type Parser struct {
	Labels           []string
	TimestampLayouts []string
	DateLayouts      []string
	// Fallback, when set, is consulted for a candidate that matched no layout.
	Fallback func(value string) (time.Time, error)
}

// Option customizes a Parser built by New.
type Option func(*Parser)

// WithFallback installs a last-resort parser for candidates no layout accepts.
func WithFallback(fn func(value string) (time.Time, error)) Option {
	return func(p *Parser) { p.Fallback = fn }
}

// WithLenientDates falls back to heuristic date detection for values no
// layout accepts. Ambiguous numeric dates are read month first.
func WithLenientDates() Option {
	return WithFallback(func(value string) (time.Time, error) {
		return dateparse.ParseIn(value, time.UTC, dateparse.PreferMonthFirst(true))
	})
}

// New returns a parser over the package tables.
func New(opts ...Option) *Parser {
	p := &Parser{
		Labels:           Labels,
		TimestampLayouts: TimestampLayouts,
		DateLayouts:      DateLayouts,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Default is the parser used by Parse.
var Default = New() //nolint: gochecknoglobals

// Parse returns the first expiry timestamp found in text using Default.
func Parse(text string) (time.Time, bool) {
	return Default.Parse(text)
}

// Parse returns the first expiry timestamp found in text, in UTC. The boolean
// is false when no labelled line carries a parseable value, which is a normal
// outcome for registries that publish no machine-readable expiry.
func (p *Parser) Parse(text string) (time.Time, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, label := range p.Labels {
			_, value, found := strings.Cut(line, label)
			if !found {
				continue
			}
			if t, ok := p.parseValue(Clean(value)); ok {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// Clean prepares the text after a label for layout matching: surrounding
// whitespace and a trailing parenthetical are dropped, and a zero-millisecond
// UTC suffix ".0Z" becomes "Z".
func Clean(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, " ("); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	if strings.HasSuffix(value, ".0Z") {
		value = strings.TrimSuffix(value, ".0Z") + "Z"
	}

	return value
}

func (p *Parser) parseValue(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range p.TimestampLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if strings.Contains(layout, "MST") && !knownOffset(t) {
			continue
		}

		return t.UTC(), true
	}
	for _, layout := range p.DateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	if p.Fallback != nil {
		if t, err := p.Fallback(value); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// knownOffset reports whether the zone abbreviation time.Parse read has a
// meaning independent of the host's time zone database. Anything else was
// given a zero offset that may be hours off.
func knownOffset(t time.Time) bool {
	name, _ := t.Zone()

	return name == "UTC" || strings.HasPrefix(name, "GMT")
}
