// Package limiter is the coordination layer over the ledgers: weekly
// allowance arithmetic, extra-time grants, the weekly reset watermark,
// and store maintenance.
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gametime/internal/clock"
	"gametime/internal/database"
	"gametime/internal/events"
	"gametime/internal/rewardledger"
	"gametime/internal/settings"
	"gametime/internal/status"
	"gametime/internal/timeledger"
)

type Limiter struct {
	policy   status.Policy
	times    *timeledger.Ledger
	rewards  *rewardledger.Ledger
	settings *settings.Store
	db       *database.DB
	clock    clock.Clock
	recorder *events.Recorder
	logger   *slog.Logger
}

func New(
	policy status.Policy,
	times *timeledger.Ledger,
	rewards *rewardledger.Ledger,
	store *settings.Store,
	db *database.DB,
	clk clock.Clock,
	recorder *events.Recorder,
	logger *slog.Logger,
) *Limiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		policy:   policy,
		times:    times,
		rewards:  rewards,
		settings: store,
		db:       db,
		clock:    clk,
		recorder: recorder,
		logger:   logger,
	}
}

// WeeklyStatus returns the current week's allowance picture.
func (l *Limiter) WeeklyStatus(ctx context.Context) (status.Weekly, error) {
	weekStart := timeledger.WeekStart(l.clock.Now())
	total, err := l.times.WeekTotal(ctx, weekStart)
	if err != nil {
		return status.Weekly{}, fmt.Errorf("times.WeekTotal() > %w", err)
	}
	return status.Compute(l.policy, weekStart, total.UsedMinutes, total.ExtraMinutes), nil
}

// AddWeeklyExtraTime credits minutes to this week's extra time and
// returns the new extra total. The total is capped so base plus extra
// never exceeds the configured maximum; a grant beyond the cap is
// silently truncated.
func (l *Limiter) AddWeeklyExtraTime(ctx context.Context, minutes float64) (float64, error) {
	weekStart := timeledger.WeekStart(l.clock.Now())
	total, err := l.times.WeekTotal(ctx, weekStart)
	if err != nil {
		return 0, fmt.Errorf("times.WeekTotal() > %w", err)
	}

	extra := total.ExtraMinutes + minutes
	maxExtra := l.policy.MaxWeeklyLimitMinutes - l.policy.BaseWeeklyLimitMinutes
	if extra > maxExtra {
		extra = maxExtra
	}
	if extra < 0 {
		extra = 0
	}

	if err := l.times.SetWeeklyExtraTime(ctx, weekStart, extra); err != nil {
		return 0, fmt.Errorf("times.SetWeeklyExtraTime() > %w", err)
	}

	l.recorder.Record(ctx, events.KindExtraTimeGranted, "minutes", minutes, "total", extra)
	return extra, nil
}

// AdjustUsedTime records a correction to this week's used minutes as a
// zero-length session so the ledger stays append-only. Negative minutes
// give time back.
func (l *Limiter) AdjustUsedTime(ctx context.Context, minutes float64, note string) error {
	now := l.clock.Now()
	rec := timeledger.SessionRecord{
		StartTime:       now,
		EndTime:         &now,
		DurationMinutes: &minutes,
		Label:           "adjustment",
		Note:            note,
	}
	if err := l.times.AddSession(ctx, &rec); err != nil {
		return fmt.Errorf("times.AddSession() > %w", err)
	}

	l.recorder.Record(ctx, events.KindUsedTimeAdjusted, "minutes", minutes, "note", note)
	return nil
}

// WeeklyResetCheck advances the reset watermark when a new week has
// begun. Weekly figures are keyed by week start, so the reset itself is
// only the watermark update plus a cache flush; it is safe to call on
// every startup.
func (l *Limiter) WeeklyResetCheck(ctx context.Context) (bool, error) {
	currentWeek := timeledger.WeekKey(timeledger.WeekStart(l.clock.Now()))

	last, ok, err := l.settings.Get(ctx, settings.KeyLastWeeklyReset)
	if err != nil {
		return false, fmt.Errorf("settings.Get(%s) > %w", settings.KeyLastWeeklyReset, err)
	}
	if ok && last == currentWeek {
		return false, nil
	}

	if err := l.settings.Set(ctx, settings.KeyLastWeeklyReset, currentWeek); err != nil {
		return false, fmt.Errorf("settings.Set(%s) > %w", settings.KeyLastWeeklyReset, err)
	}
	l.times.InvalidateCache()

	l.logger.Info("weekly reset", "week_start", currentWeek, "previous", last)
	return true, nil
}

// Optimize purges stale cached explanations, compacts the store, and
// drops cached reads.
func (l *Limiter) Optimize(ctx context.Context) error {
	if err := l.rewards.PurgeExplanations(ctx, rewardledger.DefaultExplanationHorizon); err != nil {
		return fmt.Errorf("rewards.PurgeExplanations() > %w", err)
	}
	if err := l.db.Maintain(ctx); err != nil {
		return fmt.Errorf("db.Maintain() > %w", err)
	}
	l.times.InvalidateCache()
	return nil
}

// Policy returns the configured weekly policy.
func (l *Limiter) Policy() status.Policy {
	return l.policy
}

// Now returns the limiter's current time. Exposed for display code that
// must agree with the limiter's week boundaries.
func (l *Limiter) Now() time.Time {
	return l.clock.Now()
}
