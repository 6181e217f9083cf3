package timeledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gametime/internal/testutil"
)

func addSession(t *testing.T, ledger *Ledger, start time.Time, minutes float64, label string) SessionRecord {
	t.Helper()

	end := start.Add(time.Duration(minutes * float64(time.Minute)))
	rec := SessionRecord{
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: &minutes,
		Label:           label,
	}
	require.NoError(t, ledger.AddSession(context.Background(), &rec))
	require.NotZero(t, rec.ID)
	return rec
}

func TestLedger_WeekTotal(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setup     func(t *testing.T)
		wantUsed  float64
		wantExtra float64
	}{
		{
			name:  "empty week",
			setup: func(t *testing.T) {},
		},
		{
			name: "sums sessions inside the week only",
			setup: func(t *testing.T) {
				addSession(t, ledger, weekStart.Add(10*time.Hour), 30, "minecraft")
				addSession(t, ledger, weekStart.Add(3*24*time.Hour), 45, "")
				// Previous Sunday and next Monday stay out of the total.
				addSession(t, ledger, weekStart.Add(-2*time.Hour), 60, "")
				addSession(t, ledger, weekStart.AddDate(0, 0, 7), 60, "")
			},
			wantUsed: 75,
		},
		{
			name: "includes the week's extra minutes",
			setup: func(t *testing.T) {
				require.NoError(t, ledger.SetWeeklyExtraTime(context.Background(), weekStart, 15))
			},
			wantUsed:  75,
			wantExtra: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)

			total, err := ledger.WeekTotal(context.Background(), weekStart)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsed, total.UsedMinutes)
			assert.Equal(t, tt.wantExtra, total.ExtraMinutes)
		})
	}
}

func TestLedger_SetWeeklyExtraTime_Replaces(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, ledger.SetWeeklyExtraTime(ctx, weekStart, 30))
	require.NoError(t, ledger.SetWeeklyExtraTime(ctx, weekStart, 120))

	total, err := ledger.WeekTotal(ctx, weekStart)
	require.NoError(t, err)
	assert.Equal(t, 120.0, total.ExtraMinutes)
}

func TestLedger_Sessions(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	first := addSession(t, ledger, weekStart.Add(9*time.Hour), 20, "roblox")
	second := addSession(t, ledger, weekStart.Add(30*time.Hour), 40, "minecraft")
	addSession(t, ledger, weekStart.AddDate(0, 0, -7), 50, "last week")

	t.Run("filters by week, newest first", func(t *testing.T) {
		sessions, err := ledger.Sessions(context.Background(), &weekStart)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, second.ID, sessions[0].ID)
		assert.Equal(t, "minecraft", sessions[0].Label)
		assert.Equal(t, first.ID, sessions[1].ID)
		require.NotNil(t, sessions[1].DurationMinutes)
		assert.Equal(t, 20.0, *sessions[1].DurationMinutes)
		assert.True(t, first.StartTime.Equal(sessions[1].StartTime))
		require.NotNil(t, sessions[1].EndTime)
		assert.True(t, first.EndTime.Equal(*sessions[1].EndTime))
		assert.Equal(t, "roblox", sessions[1].Label)
	})

	t.Run("nil week start returns everything", func(t *testing.T) {
		sessions, err := ledger.Sessions(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
	})
}

func TestLedger_Sessions_CallerMutationDoesNotStick(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	addSession(t, ledger, weekStart.Add(time.Hour), 30, "minecraft")

	sessions, err := ledger.Sessions(context.Background(), &weekStart)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// Scribble over the returned record; the next read, served from the
	// cache, still sees the stored values.
	sessions[0].Label = "mutated"
	*sessions[0].DurationMinutes = 999

	again, err := ledger.Sessions(context.Background(), &weekStart)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "minecraft", again[0].Label)
	require.NotNil(t, again[0].DurationMinutes)
	assert.Equal(t, 30.0, *again[0].DurationMinutes)
}

func TestLedger_DeleteSession(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rec := addSession(t, ledger, weekStart.Add(time.Hour), 25, "")

	require.NoError(t, ledger.DeleteSession(context.Background(), rec.ID))

	total, err := ledger.WeekTotal(context.Background(), weekStart)
	require.NoError(t, err)
	assert.Zero(t, total.UsedMinutes)
}

func TestLedger_WeekTotalCache(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ledger := New(db, clk)

	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	addSession(t, ledger, weekStart.Add(time.Hour), 30, "")
	total, err := ledger.WeekTotal(ctx, weekStart)
	require.NoError(t, err)
	require.Equal(t, 30.0, total.UsedMinutes)

	t.Run("mutation invalidates the cached total", func(t *testing.T) {
		addSession(t, ledger, weekStart.Add(2*time.Hour), 10, "")

		total, err := ledger.WeekTotal(ctx, weekStart)
		require.NoError(t, err)
		assert.Equal(t, 40.0, total.UsedMinutes)
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		clk.Advance(2 * time.Minute)

		total, err := ledger.WeekTotal(ctx, weekStart)
		require.NoError(t, err)
		assert.Equal(t, 40.0, total.UsedMinutes)
	})
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself",
			in:   time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the preceding monday",
			in:   time.Date(2026, 9, 6, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday mid-week",
			in:   time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
			assert.Equal(t, tt.want.Format(DateLayout), WeekKey(WeekStart(tt.in)))
		})
	}
}
