package service

import (
	"time"

	"github.com/loaa/reading-console/models"
)

// streakWindow is the number of calendar days the streak view covers.
const streakWindow = 7

// Streak summarizes a user's page progress over the trailing week.
type Streak struct {
	User string `json:"user"`
	// Days holds the per-day page sums, index 0 = today (UTC), 6 = six
	// days ago. Negative deltas (corrections) are floored at 0.
	Days [streakWindow]int `json:"days"`
	// ConsecutiveDays counts non-zero days walking backward from the most
	// recent non-zero day in the window.
	ConsecutiveDays int `json:"consecutiveDays"`
	WeekPages       int `json:"weekPages"`
	DailyAverage    int `json:"dailyAverage"`
}

// ComputeStreak buckets progress events into the last seven UTC calendar
// days for the given user ("all" selects everyone). Multiple books on the
// same day contribute independently; duplicate events are dropped by
// identity before counting.
func ComputeStreak(events []models.Event, user string, now time.Time) Streak {
	st := Streak{User: user}
	today := now.UTC().Truncate(24 * time.Hour)

	for _, e := range Dedupe(events) {
		if e.Type != models.EventProgress {
			continue
		}
		if user != "all" && e.OwnerUser != user {
			continue
		}
		day := e.Timestamp.UTC().Truncate(24 * time.Hour)
		idx := int(today.Sub(day).Hours() / 24)
		if idx < 0 || idx >= streakWindow {
			continue
		}
		if e.DeltaPages > 0 {
			st.Days[idx] += e.DeltaPages
		}
	}

	for _, pages := range st.Days {
		st.WeekPages += pages
	}
	st.DailyAverage = st.WeekPages / streakWindow

	// Skip leading quiet days, then count the consecutive run.
	start := 0
	for start < streakWindow && st.Days[start] == 0 {
		start++
	}
	for i := start; i < streakWindow && st.Days[i] > 0; i++ {
		st.ConsecutiveDays++
	}
	return st
}
