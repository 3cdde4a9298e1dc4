// Package votingwindow computes the monthly window in which groups vote on
// the following month's events. All times are UTC.
package votingwindow

import (
	"fmt"
	"time"
)

// Window describes one monthly voting round.
type Window struct {
	TargetYear    int        `json:"target_year"`
	TargetMonth   time.Month `json:"target_month"`
	Opens         time.Time  `json:"opens_at"`
	Closes        time.Time  `json:"closes_at"`
	DeadlineLabel string     `json:"deadline_label"`
	Open          bool       `json:"open"`
}

// Current returns the window relevant at now. A window opens at 00:00 on the
// last Friday of a month and closes at the end of the 1st day of the next
// month, so on the 1st the previous month's window is still current.
func Current(now time.Time) Window {
	now = now.UTC()
	year, month := now.Year(), now.Month()
	if now.Day() == 1 {
		year, month = shift(year, month, -1)
	}

	targetYear, targetMonth := shift(year, month, 1)
	opens := time.Date(year, month, lastFriday(year, month), 0, 0, 0, 0, time.UTC)
	closes := time.Date(targetYear, targetMonth, 2, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)

	return Window{
		TargetYear:  targetYear,
		TargetMonth: targetMonth,
		Opens:       opens,
		Closes:      closes,
		DeadlineLabel: fmt.Sprintf("%s %d voting closes %s",
			targetMonth, targetYear, closes.Format("Jan 2, 3:04 PM UTC")),
		Open: !now.Before(opens) && !now.After(closes),
	}
}

// IsOpen reports whether voting is open at now.
func IsOpen(now time.Time) bool {
	return Current(now).Open
}

func lastFriday(year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(time.Friday) + 7) % 7
	return last.Day() - offset
}

func shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
