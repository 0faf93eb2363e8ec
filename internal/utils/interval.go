package utils

import (
	"fmt"
	"strings"
	"time"
)

// Calendar dates are "YYYY-MM-DD" and times of day are 24-hour "HH:mm".
// Both formats compare correctly as plain strings, so the overlap math below
// never converts to time.Time and never touches timezones.

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var weekdayTokens = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// DateRangesOverlap reports whether two date ranges overlap. A nil end is
// treated as open-ended (infinitely far future). Ranges are inclusive, so
// ranges that share a boundary date do overlap.
func DateRangesOverlap(aStart string, aEnd *string, bStart string, bEnd *string) bool {
	if aEnd != nil && bStart > *aEnd {
		return false
	}
	if bEnd != nil && aStart > *bEnd {
		return false
	}
	return true
}

// TimeRangesOverlap is a strict overlap test on times of day: adjacent ranges
// that touch at a boundary do not overlap.
func TimeRangesOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}

// ValidateDate checks a "YYYY-MM-DD" calendar date string.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return nil
}

// ValidateTime checks a 24-hour "HH:mm" time string.
func ValidateTime(s string) error {
	if len(s) != 5 || s[2] != ':' {
		return fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	if _, err := time.Parse(TimeLayout, s); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	return nil
}

// NormalizeDays lowercases weekday tokens and drops anything that is not a
// known three-letter token.
func NormalizeDays(days []string) []string {
	var out []string
	for _, d := range days {
		token := strings.ToLower(strings.TrimSpace(d))
		for _, known := range weekdayTokens {
			if token == known {
				out = append(out, token)
				break
			}
		}
	}
	return out
}

// DaySetsIntersect reports whether two weekday token sets share a day.
// Comparison is case-insensitive.
func DaySetsIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, d := range a {
		set[strings.ToLower(d)] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[strings.ToLower(d)]; ok {
			return true
		}
	}
	return false
}

// WeekdayToken returns the lowercase three-letter token for t's weekday.
func WeekdayToken(t time.Time) string {
	return weekdayTokens[int(t.Weekday())]
}

// FormatDate renders t as a "YYYY-MM-DD" calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
