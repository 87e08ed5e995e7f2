package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpdate_NoPriorCompletion(t *testing.T) {
	t.Parallel()

	res := Update(nil, 0, 0, day(2024, 3, 1))
	require.Equal(t, Result{Streak: 1, MaxStreak: 1}, res)
}

func TestUpdate_Sequence(t *testing.T) {
	t.Parallel()

	d := day(2024, 2, 27)
	var last *time.Time
	cur, maxS := 0, 0

	for i, want := range []int{1, 2, 3} {
		today := d.AddDate(0, 0, i)
		res := Update(last, cur, maxS, today)
		require.Equal(t, want, res.Streak)
		cur, maxS = res.Streak, res.MaxStreak
		last = &today
	}

	// skip one day (D+2 -> D+4)
	gap := d.AddDate(0, 0, 4)
	res := Update(last, cur, maxS, gap)
	require.Equal(t, 1, res.Streak)
	require.Equal(t, 3, res.MaxStreak, "max streak never decreases")
}

func TestUpdate_SameDayIsNoop(t *testing.T) {
	t.Parallel()

	today := day(2024, 5, 10)
	res := Update(&today, 4, 9, today)
	require.Equal(t, Result{Streak: 4, MaxStreak: 9}, res)
}

func TestUpdate_AcrossMonthAndYear(t *testing.T) {
	t.Parallel()

	last := day(2023, 12, 31)
	res := Update(&last, 6, 6, day(2024, 1, 1))
	require.Equal(t, Result{Streak: 7, MaxStreak: 7}, res)
}

func TestUpdate_ComparesCalendarDates(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*3600)
	// stored DATE values come back as UTC midnight
	last := day(2024, 6, 1)
	today := Day(time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC), loc) // 2024-06-02 in UTC+3
	res := Update(&last, 2, 2, today)
	require.Equal(t, 3, res.Streak)
}

func TestDay_Truncates(t *testing.T) {
	t.Parallel()

	got := Day(time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC), nil)
	require.Equal(t, day(2024, 6, 1), got)
}
