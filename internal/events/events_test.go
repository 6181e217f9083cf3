package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gametime/internal/testutil"
)

func TestRecorder_RecordAndRecent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	recorder := NewRecorder(db, clk, nil)
	ctx := context.Background()

	recorder.Record(ctx, KindSessionStarted, "label", "minecraft", "planned_minutes", 30)
	recorder.Record(ctx, KindSessionEnded, "minutes", 28)
	recorder.Record(ctx, KindScreenLocked)

	events, err := recorder.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, KindScreenLocked, events[0].Kind)
	assert.Empty(t, events[0].Detail)
	assert.Equal(t, KindSessionEnded, events[1].Kind)
	assert.Equal(t, "minutes=28", events[1].Detail)
	assert.Equal(t, KindSessionStarted, events[2].Kind)
	assert.Equal(t, "label=minecraft planned_minutes=30", events[2].Detail)
	assert.Equal(t, "2026-08-31T12:00:00Z", events[2].OccurredAt)

	t.Run("kind filter", func(t *testing.T) {
		events, err := recorder.Recent(ctx, KindSessionEnded, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, KindSessionEnded, events[0].Kind)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := recorder.Recent(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var recorder *Recorder

	recorder.Record(context.Background(), KindError, "detail", "x")

	events, err := recorder.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
