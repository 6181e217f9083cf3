// Package status derives the weekly allowance figures from raw ledger
// totals and the configured policy. It holds no state of its own.
package status

import "time"

// Policy is the configured weekly allowance.
type Policy struct {
	BaseWeeklyLimitMinutes float64
	MaxWeeklyLimitMinutes  float64
}

// Weekly is the derived picture for one week.
type Weekly struct {
	WeekStart        time.Time
	UsedMinutes      float64
	ExtraMinutes     float64
	LimitMinutes     float64
	RemainingMinutes float64
}

// Compute derives the effective limit and remaining minutes. The limit
// is base plus extra, never above max; remaining never goes negative
// even when usage overshoots the limit.
func Compute(policy Policy, weekStart time.Time, usedMinutes, extraMinutes float64) Weekly {
	limit := policy.BaseWeeklyLimitMinutes + extraMinutes
	if limit > policy.MaxWeeklyLimitMinutes {
		limit = policy.MaxWeeklyLimitMinutes
	}

	remaining := limit - usedMinutes
	if remaining < 0 {
		remaining = 0
	}

	return Weekly{
		WeekStart:        weekStart,
		UsedMinutes:      usedMinutes,
		ExtraMinutes:     extraMinutes,
		LimitMinutes:     limit,
		RemainingMinutes: remaining,
	}
}
