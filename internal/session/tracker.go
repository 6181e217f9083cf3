// Package session tracks the single in-memory game session and writes
// the finished record to the time ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"gametime/internal/clock"
	"gametime/internal/events"
	"gametime/internal/settings"
	"gametime/internal/timeledger"
)

// ErrSessionActive is returned by Start while a session is running. An
// active session is never silently replaced; its minutes would vanish
// from the ledger.
var ErrSessionActive = errors.New("a session is already active")

type state int

const (
	stateIdle state = iota
	stateActive
	stateEnding
)

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	Active         bool
	StartTime      time.Time
	PlannedMinutes float64
	Label          string
	ElapsedMinutes float64
}

// Result describes the outcome of End. Ended is false when there was no
// session to end.
type Result struct {
	Ended         bool
	StartTime     time.Time
	EndTime       time.Time
	ActualMinutes float64
}

// Tracker holds at most one active session. The finished record is
// persisted exactly once; if the ledger write fails the session stays
// active so the time is not lost. While a session runs the tracker
// keeps the session_active_since marker in the settings store so other
// processes (the monitor) can see it.
type Tracker struct {
	ledger   *timeledger.Ledger
	store    *settings.Store
	clock    clock.Clock
	recorder *events.Recorder

	mu             sync.Mutex
	state          state
	startTime      time.Time
	plannedMinutes float64
	label          string
}

// NewTracker wires the tracker. store may be nil; the session then
// exists only in this process.
func NewTracker(ledger *timeledger.Ledger, store *settings.Store, clk clock.Clock, recorder *events.Recorder) *Tracker {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Tracker{ledger: ledger, store: store, clock: clk, recorder: recorder}
}

// Start begins a session. plannedMinutes and label are advisory; only
// the actual elapsed time is ever recorded.
func (t *Tracker) Start(ctx context.Context, plannedMinutes float64, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateIdle {
		return ErrSessionActive
	}

	startTime := t.clock.Now()

	// The marker is what keeps the monitor away. A session it cannot
	// see would be killed, so a failed marker write fails the start.
	if t.store != nil {
		err := t.store.Set(ctx, settings.KeySessionActiveSince, startTime.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("store.Set(%s) > %w", settings.KeySessionActiveSince, err)
		}
	}

	t.state = stateActive
	t.startTime = startTime
	t.plannedMinutes = plannedMinutes
	t.label = label

	t.recorder.Record(ctx, events.KindSessionStarted, "label", label, "planned_minutes", plannedMinutes)
	return nil
}

// End finishes the active session and persists it. Ending when idle is
// a no-op, not an error. The duration is rounded to whole minutes.
func (t *Tracker) End(ctx context.Context, note string) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateActive {
		return Result{}, nil
	}
	t.state = stateEnding

	endTime := t.clock.Now()
	minutes := math.Round(endTime.Sub(t.startTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	rec := timeledger.SessionRecord{
		StartTime:       t.startTime,
		EndTime:         &endTime,
		DurationMinutes: &minutes,
		Label:           t.label,
		Note:            note,
	}
	if err := t.ledger.AddSession(ctx, &rec); err != nil {
		t.state = stateActive
		return Result{}, fmt.Errorf("ledger.AddSession() > %w", err)
	}

	result := Result{
		Ended:         true,
		StartTime:     t.startTime,
		EndTime:       endTime,
		ActualMinutes: minutes,
	}

	t.state = stateIdle
	t.startTime = time.Time{}
	t.plannedMinutes = 0
	t.label = ""

	// A leftover marker expires via the presence staleness bound, so a
	// failed delete is audited, not fatal.
	if t.store != nil {
		if err := t.store.Delete(ctx, settings.KeySessionActiveSince); err != nil {
			t.recorder.Record(ctx, events.KindError, "op", "clear session marker", "error", err.Error())
		}
	}

	t.recorder.Record(ctx, events.KindSessionEnded, "minutes", minutes)
	return result, nil
}

// Active reports whether a session is running or being persisted.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != stateIdle
}

// Snapshot returns the current session state for display.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateIdle {
		return Snapshot{}
	}
	return Snapshot{
		Active:         true,
		StartTime:      t.startTime,
		PlannedMinutes: t.plannedMinutes,
		Label:          t.label,
		ElapsedMinutes: t.clock.Now().Sub(t.startTime).Minutes(),
	}
}
