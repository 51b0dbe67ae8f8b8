// Package timeparse converts the free-form date and time strings coming out of
// image analysis and manual entry into canonical values. Crawled exhibition data
// mixes separators (2025-12-01, 2025.12.01, 2025/12/01), Korean and English
// clock markers (오후 2시, 2pm, 14:00) and range notations (~, -, to), so every
// parser here is best-effort: an unrecognized string yields no value rather than
// an error, and callers decide whether the field was mandatory.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "2006.01.02", "2006/01/02"}

// dateRangeSeparators are tried in priority order. The bare hyphen comes after
// " - " so that spaced ranges split cleanly; ISO dates survive the bare hyphen
// because a split that leaves an unparseable left half falls through.
var dateRangeSeparators = []string{"~", " - ", "-", "–", "to"}

var timeRangeSeparators = []string{"-", "~", "–", "to"}

var (
	amMarkerRe = regexp.MustCompile(`오전|morning|am\b|a\.m\.`)
	pmMarkerRe = regexp.MustCompile(`오후|afternoon|evening|pm\b|p\.m\.`)
	unitWordRe = regexp.MustCompile(`o'clock|minutes|mins|min\b`)
	spaceRe    = regexp.MustCompile(`\s+`)

	colonClockRe   = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	koreanClockRe  = regexp.MustCompile(`(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분?)?`)
	compactClockRe = regexp.MustCompile(`\b(\d{1,2})(\d{2})\b`)
	bareHourRe     = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ParseDate parses a single calendar date. Formats are tried in a fixed order;
// the first match wins.
func ParseDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseDateRange splits raw on the first range separator whose left half parses
// as a date. A missing or unparseable end collapses to the start date; a string
// without any separator is treated as a single-day range.
func ParseDateRange(raw string) (start, end *time.Time) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	for _, sep := range dateRangeSeparators {
		if !strings.Contains(v, sep) {
			continue
		}
		parts := strings.SplitN(v, sep, 2)
		s, ok := ParseDate(parts[0])
		if !ok {
			continue
		}
		if e, ok := ParseDate(parts[1]); ok {
			return &s, &e
		}
		return &s, &s
	}

	if s, ok := ParseDate(v); ok {
		return &s, &s
	}
	return nil, nil
}

// ParseTime normalizes a clock string to "HH:MM" (24-hour). It understands
// Korean and English AM/PM markers, Korean 시/분 notation, colon-separated and
// compact (HHMM) 24-hour forms. Returns "" when nothing matches.
func ParseTime(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ""
	}

	period := ""
	if pmMarkerRe.MatchString(v) {
		period = "pm"
		v = pmMarkerRe.ReplaceAllString(v, " ")
	} else if amMarkerRe.MatchString(v) {
		period = "am"
		v = amMarkerRe.ReplaceAllString(v, " ")
	}
	v = unitWordRe.ReplaceAllString(v, " ")
	v = strings.TrimSpace(spaceRe.ReplaceAllString(v, " "))

	hour, minute, ok := findClock(v, period != "")
	if !ok {
		return ""
	}

	if period != "" {
		if hour < 1 || hour > 12 || minute > 59 {
			return ""
		}
		if period == "pm" && hour != 12 {
			hour += 12
		} else if period == "am" && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// findClock extracts an (hour, minute) pair. A bare one- or two-digit number
// only counts as an hour when an AM/PM marker was present, otherwise "3" in a
// booth number would parse as a time.
func findClock(v string, allowBareHour bool) (int, int, bool) {
	if m := colonClockRe.FindStringSubmatch(v); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	if m := koreanClockRe.FindStringSubmatch(v); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	if m := compactClockRe.FindStringSubmatch(v); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	if allowBareHour {
		if m := bareHourRe.FindStringSubmatch(v); m != nil {
			return atoi(m[1]), 0, true
		}
	}
	return 0, 0, false
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// ParseTimeRange applies the separator scan to ParseTime. A single time (no
// separator, or an unparseable end half) mirrors into both values.
func ParseTimeRange(raw string) (start, end string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ""
	}

	for _, sep := range timeRangeSeparators {
		if !strings.Contains(v, sep) {
			continue
		}
		parts := strings.SplitN(v, sep, 2)
		start = ParseTime(parts[0])
		end = ParseTime(parts[1])
		if end == "" {
			end = start
		}
		return start, end
	}

	single := ParseTime(v)
	return single, single
}

// FormatTimeRange renders a start/end pair for display, collapsing identical
// or missing halves the way the upload form shows them.
func FormatTimeRange(start, end string) string {
	if start != "" && end != "" && start != end {
		return start + " - " + end
	}
	return start
}

// FormatDateRange renders "YYYY-MM-DD" or "YYYY-MM-DD ~ YYYY-MM-DD".
func FormatDateRange(start time.Time, end *time.Time) string {
	out := start.Format("2006-01-02")
	if end != nil && !end.Equal(start) {
		out += " ~ " + end.Format("2006-01-02")
	}
	return out
}
