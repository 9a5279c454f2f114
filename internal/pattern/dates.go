package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dateFormats are the accepted natural-language date layouts, tried in
// order. Layouts without a year default to the current year.
var dateFormats = []string{
	"January 2, 2006",
	"January 2 2006",
	"2006-01-02",
	"January 2",
}

var titleCaser = cases.Title(language.English)

// normalizeDate converts a natural-language date phrase to ISO form.
// Ordinal suffixes are stripped ("January 1st" reads as "January 1") and
// month names are case-folded before parsing.
func normalizeDate(phrase string, now time.Time) (string, bool) {
	cleaned := strings.TrimSpace(ordinalSuffix.ReplaceAllString(phrase, "$1"))
	if isoDate.MatchString(cleaned) {
		return cleaned, true
	}
	cleaned = titleCaser.String(strings.ToLower(cleaned))
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// parseMonth recognizes a full English month name.
func parseMonth(word string) (time.Month, bool) {
	t, err := time.Parse("January", titleCaser.String(strings.ToLower(word)))
	if err != nil {
		return 0, false
	}
	return t.Month(), true
}

// datePhrase is the decomposed form of a date capture: either a specific
// ISO date, a month (optionally with year), or a bare year.
type datePhrase struct {
	Specific string // ISO date, "" when unset
	Month    time.Month
	HasMonth bool
	Year     int
	HasYear  bool
}

// parseDatePhrase classifies a captured time phrase. Commas are treated
// as separators so "January, 2023" and "January 2023" read the same.
func parseDatePhrase(raw string, now time.Time) (datePhrase, bool) {
	cleaned := strings.TrimSpace(ordinalSuffix.ReplaceAllString(raw, "$1"))

	if iso, ok := normalizeDate(cleaned, now); ok {
		return datePhrase{Specific: iso}, true
	}

	words := strings.Fields(strings.ReplaceAll(cleaned, ",", " "))
	switch len(words) {
	case 1:
		if year, err := strconv.Atoi(words[0]); err == nil && len(words[0]) == 4 {
			return datePhrase{Year: year, HasYear: true}, true
		}
		if month, ok := parseMonth(words[0]); ok {
			return datePhrase{Month: month, HasMonth: true}, true
		}
	case 2:
		month, okMonth := parseMonth(words[0])
		year, err := strconv.Atoi(words[1])
		if okMonth && err == nil {
			return datePhrase{Month: month, HasMonth: true, Year: year, HasYear: true}, true
		}
		if okMonth {
			return datePhrase{Month: month, HasMonth: true}, true
		}
	}
	return datePhrase{}, false
}
