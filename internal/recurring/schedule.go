// Package recurring catches recurring transactions up to the current date.
package recurring

import (
	"time"

	"github.com/NgigiN/gigledger/internal/models"
)

// Next returns the occurrence after last.
//
// Monthly occurrences land on anchorDay, clamped to the last day of the
// target month, so an anchor of 31 yields Jan 31, Feb 29, Mar 31, Apr 30.
// An anchorDay of 0 anchors on last's own day.
func Next(last time.Time, freq models.Frequency, anchorDay int) time.Time {
	last = models.Day(last)
	switch freq {
	case models.Daily:
		return last.AddDate(0, 0, 1)
	case models.Weekly:
		return last.AddDate(0, 0, 7)
	case models.Monthly:
		if anchorDay <= 0 {
			anchorDay = last.Day()
		}
		first := time.Date(last.Year(), last.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		day := min(anchorDay, models.DaysIn(first.Year(), first.Month()))
		return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
	}
	return last
}

// Occurrences returns, in order, every occurrence date in (last, today].
func Occurrences(last, today time.Time, freq models.Frequency, anchorDay int) []time.Time {
	if !freq.Valid() {
		return nil
	}
	today = models.Day(today)
	var out []time.Time
	for next := Next(last, freq, anchorDay); !next.After(today); next = Next(next, freq, anchorDay) {
		out = append(out, next)
	}
	return out
}
