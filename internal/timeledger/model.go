package timeledger

import "time"

// SessionRecord is one immutable block of permitted play time. EndTime
// and DurationMinutes are nil while the session is still open; they are
// set exactly once when the session ends.
type SessionRecord struct {
	ID              int64
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *float64
	Label           string
	Note            string
}

// WeekTotal aggregates one week of ledger state: minutes of recorded
// play plus the earned extra allowance. Both are zero when the week has
// no rows.
type WeekTotal struct {
	UsedMinutes  float64
	ExtraMinutes float64
}

// sessionRow is the storage shape; timestamps are stored as UTC RFC3339
// text so range queries order lexicographically.
type sessionRow struct {
	ID              int64    `db:"id"`
	StartTime       string   `db:"start_time"`
	EndTime         *string  `db:"end_time"`
	DurationMinutes *float64 `db:"duration_minutes"`
	Label           string   `db:"label"`
	Note            string   `db:"note"`
}

const (
	// DateLayout is the storage form of week-start and day keys.
	DateLayout = "2006-01-02"

	timeLayout = time.RFC3339
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (r sessionRow) toRecord() (SessionRecord, error) {
	record := SessionRecord{
		ID:              r.ID,
		DurationMinutes: r.DurationMinutes,
		Label:           r.Label,
		Note:            r.Note,
	}
	start, err := parseTime(r.StartTime)
	if err != nil {
		return SessionRecord{}, err
	}
	record.StartTime = start

	if r.EndTime != nil {
		end, err := parseTime(*r.EndTime)
		if err != nil {
			return SessionRecord{}, err
		}
		record.EndTime = &end
	}
	return record, nil
}
