// Package timeutil provides timezone-aware date utilities for the learning
// engine. Streaks and daily analytics are computed against the learner's
// configured timezone, never naive UTC, so a session that crosses midnight
// UTC but not local midnight does not break a streak.
// No external dependencies - uses only standard library.
package timeutil

import (
	"math"
	"time"
)

// DefaultZone is used when a learner has no configured timezone or the
// configured name cannot be loaded.
var DefaultZone = time.UTC

// LoadZone resolves an IANA timezone name ("Asia/Almaty", "America/New_York").
// Falls back to DefaultZone on empty or unknown names so callers never have
// to handle a timezone error mid-computation.
func LoadZone(name string) *time.Location {
	if name == "" {
		return DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return DefaultZone
	}
	return loc
}

// DateOnly truncates t to midnight in the given timezone.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOnly(a, loc).Equal(DateOnly(b, loc))
}

// DaysBetween returns the number of calendar days from a to b in loc.
// Positive when b is after a. DST transitions are handled by comparing
// calendar dates, not 24h buckets.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := DateOnly(a, loc)
	db := DateOnly(b, loc)
	// Rounding absorbs the 23h/25h days around DST transitions.
	return int(math.Round(db.Sub(da).Hours() / 24))
}

// StartOfDay returns 00:00:00 of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	return DateOnly(t, loc)
}

// EndOfDay returns 23:59:59.999999999 of t's day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, loc)
}

// StartOfWeek returns Monday 00:00:00 of t's week in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := DateOnly(t, loc)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// StartOfMonth returns the first day of t's month at 00:00:00 in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// DateKey formats t as YYYY-MM-DD in loc. Used as the map/storage key for
// daily rollups.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// IsNextDay reports whether b is exactly one calendar day after a in loc.
func IsNextDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 1
}
