// Package events appends to the audit_events table. Recording is
// best-effort: failures are logged and never propagate, so an audit
// write can never block a session or a lockdown.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"gametime/internal/clock"
	"gametime/internal/database"
)

const (
	KindSessionStarted    = "session_started"
	KindSessionEnded      = "session_ended"
	KindRestrictionFound  = "restriction_detected"
	KindProcessTerminated = "process_terminated"
	KindScreenLocked      = "screen_locked"
	KindMonitorStarted    = "monitor_started"
	KindMonitorStopped    = "monitor_stopped"
	KindExtraTimeGranted  = "extra_time_granted"
	KindUsedTimeAdjusted  = "used_time_adjusted"
	KindError             = "error"
)

// Event is one audit log row.
type Event struct {
	ID         int64  `db:"id"`
	OccurredAt string `db:"occurred_at"`
	Kind       string `db:"kind"`
	Detail     string `db:"detail"`
}

// Recorder appends audit events. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	db     *database.DB
	clock  clock.Clock
	logger *slog.Logger
}

func NewRecorder(db *database.DB, clk clock.Clock, logger *slog.Logger) *Recorder {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, clock: clk, logger: logger}
}

// Record appends one event. Pairs in keyvals are formatted into the
// detail column as "k=v" fields.
func (r *Recorder) Record(ctx context.Context, kind string, keyvals ...any) {
	if r == nil {
		return
	}

	detail := ""
	for i := 0; i+1 < len(keyvals); i += 2 {
		if detail != "" {
			detail += " "
		}
		detail += fmt.Sprintf("%v=%v", keyvals[i], keyvals[i+1])
	}

	if _, err := r.db.Conn().ExecContext(ctx,
		"INSERT INTO audit_events (occurred_at, kind, detail) VALUES (?, ?, ?)",
		r.clock.Now().UTC().Format(time.RFC3339), kind, detail); err != nil {
		r.logger.Warn("failed to record audit event", "kind", kind, "error", err)
	}
}

// Recent returns the newest events, up to limit, optionally filtered to
// one kind.
func (r *Recorder) Recent(ctx context.Context, kind string, limit int) ([]Event, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var events []Event
	err := r.db.Read(ctx, func(conn *sqlx.DB) error {
		events = events[:0]
		if kind == "" {
			return conn.SelectContext(ctx, &events,
				"SELECT * FROM audit_events ORDER BY id DESC LIMIT ?", limit)
		}
		return conn.SelectContext(ctx, &events,
			"SELECT * FROM audit_events WHERE kind = ? ORDER BY id DESC LIMIT ?", kind, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("db.SelectContext(audit_events) > %w", err)
	}
	return events, nil
}
