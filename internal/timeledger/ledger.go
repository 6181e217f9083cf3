// Package timeledger persists immutable session records and the
// per-week extra-minutes counter, with a short-lived read cache over
// the weekly aggregates.
package timeledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"gametime/internal/clock"
	"gametime/internal/database"
)

const defaultCacheTTL = 60 * time.Second

// Ledger owns the game_sessions and weekly_extra_time tables. All
// physical reads and writes are serialized by a single mutex; the
// underlying store is not safe for concurrent use from multiple
// goroutines.
type Ledger struct {
	db    *database.DB
	mu    sync.Mutex
	cache *readCache
}

func New(db *database.DB, clk clock.Clock) *Ledger {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Ledger{
		db:    db,
		cache: newReadCache(defaultCacheTTL, clk.Now),
	}
}

// AddSession appends an immutable session record and assigns rec.ID.
// Write failures surface to the caller; they are never retried, so a
// session is never double-counted.
func (l *Ledger) AddSession(ctx context.Context, rec *SessionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var endTime *string
	if rec.EndTime != nil {
		s := formatTime(*rec.EndTime)
		endTime = &s
	}

	result, err := l.db.Conn().ExecContext(ctx,
		"INSERT INTO game_sessions (start_time, end_time, duration_minutes, label, note) VALUES (?, ?, ?, ?, ?)",
		formatTime(rec.StartTime), endTime, rec.DurationMinutes, rec.Label, rec.Note)
	if err != nil {
		return fmt.Errorf("db.ExecContext(insert game_session) > %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("result.LastInsertId() > %w", err)
	}
	rec.ID = id

	l.cache.invalidate("sessions")
	l.cache.invalidate("week_total")
	return nil
}

// Sessions returns all session records, or those starting within
// [weekStart, weekStart+7d) when weekStart is non-nil, newest first.
func (l *Ledger) Sessions(ctx context.Context, weekStart *time.Time) ([]SessionRecord, error) {
	cacheKey := "sessions:all"
	if weekStart != nil {
		cacheKey = "sessions:" + WeekKey(*weekStart)
	}
	if cached, ok := l.cache.get(cacheKey); ok {
		return copyRecords(cached.([]SessionRecord)), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []sessionRow
	err := l.db.Read(ctx, func(conn *sqlx.DB) error {
		rows = rows[:0]
		if weekStart == nil {
			return conn.SelectContext(ctx, &rows,
				"SELECT * FROM game_sessions ORDER BY start_time DESC, id DESC")
		}
		return conn.SelectContext(ctx, &rows,
			"SELECT * FROM game_sessions WHERE start_time >= ? AND start_time < ? ORDER BY start_time DESC, id DESC",
			formatTime(*weekStart), formatTime(weekStart.AddDate(0, 0, 7)))
	})
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext(game_sessions) > %w", err)
	}

	records := make([]SessionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("corrupt session row %d > %w", row.ID, err)
		}
		records = append(records, record)
	}

	l.cache.set(cacheKey, records)
	return copyRecords(records), nil
}

// copyRecords clones cached session records, pointer fields included,
// so a caller mutating a returned record cannot corrupt later cached
// reads.
func copyRecords(records []SessionRecord) []SessionRecord {
	out := make([]SessionRecord, len(records))
	for i, rec := range records {
		if rec.EndTime != nil {
			endTime := *rec.EndTime
			rec.EndTime = &endTime
		}
		if rec.DurationMinutes != nil {
			minutes := *rec.DurationMinutes
			rec.DurationMinutes = &minutes
		}
		out[i] = rec
	}
	return out
}

// WeekTotal sums recorded minutes for the week starting at weekStart and
// looks up the week's extra-minutes entry. Both default to zero when no
// rows exist.
func (l *Ledger) WeekTotal(ctx context.Context, weekStart time.Time) (WeekTotal, error) {
	cacheKey := "week_total:" + WeekKey(weekStart)
	if cached, ok := l.cache.get(cacheKey); ok {
		return cached.(WeekTotal), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var total WeekTotal
	err := l.db.Read(ctx, func(conn *sqlx.DB) error {
		var used sql.NullFloat64
		if err := conn.GetContext(ctx, &used,
			"SELECT SUM(duration_minutes) FROM game_sessions WHERE start_time >= ? AND start_time < ?",
			formatTime(weekStart), formatTime(weekStart.AddDate(0, 0, 7))); err != nil {
			return fmt.Errorf("db.GetContext(sum durations) > %w", err)
		}

		var extra float64
		err := conn.GetContext(ctx, &extra,
			"SELECT extra_minutes FROM weekly_extra_time WHERE week_start = ?", WeekKey(weekStart))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("db.GetContext(weekly_extra_time) > %w", err)
		}

		total = WeekTotal{UsedMinutes: used.Float64, ExtraMinutes: extra}
		return nil
	})
	if err != nil {
		return WeekTotal{}, err
	}

	l.cache.set(cacheKey, total)
	return total, nil
}

// SetWeeklyExtraTime replaces the stored extra-minutes total for the
// week. Callers own the read-modify-write cycle and any capping.
func (l *Ledger) SetWeeklyExtraTime(ctx context.Context, weekStart time.Time, totalMinutes float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Conn().ExecContext(ctx,
		"INSERT OR REPLACE INTO weekly_extra_time (week_start, extra_minutes) VALUES (?, ?)",
		WeekKey(weekStart), totalMinutes); err != nil {
		return fmt.Errorf("db.ExecContext(replace weekly_extra_time) > %w", err)
	}

	l.cache.invalidate("week_total")
	return nil
}

// DeleteSession hard-deletes a record. Admin tooling only.
func (l *Ledger) DeleteSession(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Conn().ExecContext(ctx,
		"DELETE FROM game_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("db.ExecContext(delete game_session) > %w", err)
	}

	l.cache.invalidate("sessions")
	l.cache.invalidate("week_total")
	return nil
}

// InvalidateCache drops every cached read result. Used after admin
// maintenance touches the store directly.
func (l *Ledger) InvalidateCache() {
	l.cache.invalidate("")
}
