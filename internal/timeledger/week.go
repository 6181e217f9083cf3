package timeledger

import "time"

// WeekStart returns midnight on the Monday of t's week, in t's location.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -daysSinceMonday)
}

// WeekKey is the storage key for a week, e.g. "2026-08-31".
func WeekKey(weekStart time.Time) string {
	return weekStart.Format(DateLayout)
}
