// Package plan holds the weekly-target planning core: week-boundary math,
// activity volume aggregation, and the progression strategy evaluator.
// Everything here is a pure function over domain entities plus "now".
package plan

import (
	"errors"
	"time"
)

// Weeks are bucketed from Sunday midnight in the user's local timezone.
const weekStartWeekday = time.Sunday

// ErrInvalidTimezone is returned when a timezone identifier cannot be
// resolved. Callers must fail fast rather than silently defaulting.
var ErrInvalidTimezone = errors.New("invalid timezone identifier")

// LoadTimezone resolves an IANA timezone identifier. An empty or malformed
// name is an error; picking a fallback is the caller's decision.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// WeekStart computes midnight of the most recent Sunday (inclusive) relative
// to t in the given timezone, then goes back offsetWeeks further weeks.
// All arithmetic is in calendar days, not elapsed seconds, so a week that
// crosses a DST transition still lands on a wall-clock midnight.
func WeekStart(t time.Time, loc *time.Location, offsetWeeks int) time.Time {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	daysBack := int(local.Weekday() - weekStartWeekday)
	return midnight.AddDate(0, 0, -daysBack-offsetWeeks*7)
}

// WeeksBetween counts calendar weeks from the week containing a to the week
// containing b, in loc. Negative when b's week precedes a's. Rounding absorbs
// the odd hour a DST transition adds or removes.
func WeeksBetween(a, b time.Time, loc *time.Location) int {
	aWeek := WeekStart(a, loc, 0)
	bWeek := WeekStart(b, loc, 0)
	hours := bWeek.Sub(aWeek).Hours()
	weeks := hours / (7 * 24)
	if weeks < 0 {
		return int(weeks - 0.5)
	}
	return int(weeks + 0.5)
}
