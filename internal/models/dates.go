package models

import (
	"errors"
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// Day returns the calendar day of t as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// ParseDay accepts a plain date or an RFC 3339 timestamp.
func ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	formats := []string{DayLayout, time.RFC3339, "2006-01-02T15:04:05"}
	for _, format := range formats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return Day(parsed), nil
		}
	}
	return time.Time{}, errors.New("invalid date")
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
