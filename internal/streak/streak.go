// Package streak tracks consecutive calendar days with at least one DAILY completion.
package streak

import "time"

// Result is the updated streak pair.
type Result struct {
	Streak    int
	MaxStreak int
}

// Day truncates t to the start of its calendar day in loc (UTC when loc is nil).
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// civil maps a day to UTC midnight of the same calendar date so days from
// different locations (e.g. DATE columns scanned as UTC) compare by date only.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Update applies one DAILY completion made on today.
//
// A completion the day after last extends the streak, a second completion on the
// same day leaves it unchanged, anything else restarts it at 1.
func Update(last *time.Time, current, maxStreak int, today time.Time) Result {
	next := 1
	if last != nil {
		switch civil(today).Sub(civil(*last)) {
		case 0:
			next = current
		case 24 * time.Hour:
			next = current + 1
		}
	}
	if maxStreak < next {
		maxStreak = next
	}
	return Result{Streak: next, MaxStreak: maxStreak}
}
