// Package ledger guards against rewarding the same recurrence period twice.
package ledger

import (
	"fmt"
	"time"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
)

// PeriodKey derives the recurrence bucket for day: the calendar date for DAILY
// spells and the ISO year-week for WEEKLY ones.
func PeriodKey(repeat model.RepeatType, day time.Time) (string, error) {
	switch repeat {
	case model.RepeatDaily:
		return day.Format(time.DateOnly), nil
	case model.RepeatWeekly:
		y, w := day.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w), nil
	default:
		return "", fmt.Errorf("%w: unknown repeat type %q", errs.ErrInvalidArgument, repeat)
	}
}

// coveringKeys returns the keys of both cadences whose period contains day. A
// spell whose repeat type changed keeps its old keys, so the period is
// satisfied when either one is present.
func coveringKeys(day time.Time) []string {
	daily, _ := PeriodKey(model.RepeatDaily, day)
	weekly, _ := PeriodKey(model.RepeatWeekly, day)
	return []string{daily, weekly}
}

func recorded(spell *model.Spell, day time.Time) bool {
	for _, k := range coveringKeys(day) {
		if _, ok := spell.Completed[k]; ok {
			return true
		}
	}
	return false
}

// Done reports whether the period containing day is already satisfied.
func Done(spell *model.Spell, day time.Time) bool {
	if _, err := PeriodKey(spell.RepeatType, day); err != nil {
		return false
	}
	return recorded(spell, day)
}

// TryRecord marks the period containing day as completed and returns its key.
// If that period, or the other cadence's period covering day, is already
// present it returns errs.ErrAlreadyCompleted and leaves the spell untouched.
func TryRecord(spell *model.Spell, day time.Time) (string, error) {
	key, err := PeriodKey(spell.RepeatType, day)
	if err != nil {
		return "", err
	}
	if recorded(spell, day) {
		return "", errs.ErrAlreadyCompleted
	}
	if spell.Completed == nil {
		spell.Completed = make(map[string]struct{})
	}
	spell.Completed[key] = struct{}{}
	return key, nil
}
