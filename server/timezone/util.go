// Package timezone provides timezone utilities for the timetable bot.
//
// Target dates are always derived in the configured zone: "today" for a
// student in Moscow must not flip at UTC midnight.
package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// TimezoneMoscow is the default timetable timezone.
const TimezoneMoscow = "Europe/Moscow"

// DateLayout is the day-month-year layout used in messages.
const DateLayout = "02.01.2006"

// UTC is the coordinated universal time timezone
var UTC = time.UTC

// LocationMoscow is the pre-loaded Europe/Moscow location
var LocationMoscow = MustParseTimezone(TimezoneMoscow)

// ParseTimezone parses an IANA timezone identifier (e.g., "Europe/Moscow").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Now().In(tz)
}

// TargetDate returns the start of the day that lies offset days from now in tz.
// Offset may be negative. Calendar arithmetic keeps DST transitions from
// shifting the result to a neighbouring day.
func TargetDate(now time.Time, offset int, tz *time.Location) time.Time {
	return StartOfDay(now, tz).AddDate(0, 0, offset)
}

// FormatDate formats t as dd.mm.yyyy in tz.
func FormatDate(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format(DateLayout)
}
