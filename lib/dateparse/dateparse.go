// Package dateparse turns the freeform due-date text found on LMS pages
// into calendar dates. Portals render dates in whatever format the
// institution configured, so parsing runs through a fixed list of exact
// layouts first and falls back to regex extraction from surrounding
// prose.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"lms-scraper/lib/timezone"
)

// Moodle renders an uninitialized due date as the epoch in the
// portal's (UTC-offset) timezone. Any text carrying it means "no due
// date set", never a real deadline.
var unsetSentinels = []string{"31-12-1969", "1969"}

var layouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02/01/06",
	"02-01-06",
	"January 2, 2006",
	"2 January 2006",
	"2 de January de 2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
}

// Spanish-language portals spell out month names; time.Parse only knows
// the English ones, so they are rewritten before layout matching.
var spanishMonths = map[string]string{
	"enero":      "January",
	"febrero":    "February",
	"marzo":      "March",
	"abril":      "April",
	"mayo":       "May",
	"junio":      "June",
	"julio":      "July",
	"agosto":     "August",
	"septiembre": "September",
	"octubre":    "October",
	"noviembre":  "November",
	"diciembre":  "December",
}

func translateMonths(s string) string {
	lower := strings.ToLower(s)
	for es, en := range spanishMonths {
		if idx := strings.Index(lower, es); idx >= 0 {
			return s[:idx] + en + s[idx+len(es):]
		}
	}
	return s
}

var ymdRegex = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
var dmyRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`),
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{2})`),
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{2})`),
}

// yearInRange rejects candidates that cannot be real deadlines for a
// live course: scraped pages carry plenty of incidental numbers that
// happen to look like dates.
func yearInRange(year int) bool {
	return year >= 2020 && year <= timezone.Now().Year()+2
}

// Normalize parses freeform due-date text into a calendar date
// (midnight, portal timezone). The second return is false when the text
// holds no usable date; that is an expected outcome, not an error.
func Normalize(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, sentinel := range unsetSentinels {
		if strings.Contains(text, sentinel) {
			return time.Time{}, false
		}
	}

	candidate := translateMonths(text)
	for _, layout := range layouts {
		parsed, err := time.ParseInLocation(layout, candidate, timezone.Location)
		if err != nil {
			continue
		}
		if !yearInRange(parsed.Year()) {
			continue
		}
		return midnight(parsed), true
	}

	if m := ymdRegex.FindStringSubmatch(text); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	for _, re := range dmyRegexes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}

	return time.Time{}, false
}

func buildDate(yearStr, monthStr, dayStr string) (time.Time, bool) {
	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)

	if year < 100 {
		if year >= 50 {
			year += 1900
		} else {
			year += 2000
		}
	}
	if !yearInRange(year) || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, timezone.Location)
	// reject rollovers like 31/02
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, timezone.Location)
}

// ExtractDateFromText runs the caller's ordered pattern list against a
// text blob and returns the first capture group (or whole match) found.
// Used when a due date is buried in surrounding prose rather than
// isolated in its own element.
func ExtractDateFromText(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}

// CompilePatterns compiles a profile's date patterns, skipping the ones
// that do not compile (profiles are hand-edited yaml).
func CompilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}
