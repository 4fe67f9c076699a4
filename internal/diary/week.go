package diary

import (
	"fmt"
	"time"
)

// WeekID returns the ISO-8601 week identifier for t, e.g. "2026-W07". The ISO
// year can differ from the calendar year at the boundaries: Dec 29 2025 is
// "2026-W01" and Jan 1 2027 is "2026-W53".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekBounds returns the inclusive bounds of t's ISO week in t's location:
// Monday 00:00:00 through Sunday 23:59:59.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	// time.Weekday puts Sunday at 0; shift so Monday is day 0.
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	year, month, day := t.AddDate(0, 0, -daysSinceMonday).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	// The end is built from the Sunday's calendar date rather than by adding
	// a duration, so a DST transition inside the week cannot shift it off
	// 23:59:59 wall clock.
	ey, em, ed := start.AddDate(0, 0, 6).Date()
	end := time.Date(ey, em, ed, 23, 59, 59, 0, t.Location())
	return start, end
}
