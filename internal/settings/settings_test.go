package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gametime/internal/testutil"
)

func TestStore(t *testing.T) {
	db := testutil.OpenTestDB(t)
	clk := testutil.NewFakeClock(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	store := NewStore(db, clk)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, KeyLastWeeklyReset)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, KeyLastWeeklyReset, "2026-08-31"))

	value, ok, err := store.Get(ctx, KeyLastWeeklyReset)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-08-31", value)

	t.Run("set replaces", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, KeyLastWeeklyReset, "2026-09-07"))

		value, ok, err := store.Get(ctx, KeyLastWeeklyReset)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2026-09-07", value)
	})

	t.Run("delete removes", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, KeySessionActiveSince, "2026-08-31T12:00:00Z"))
		require.NoError(t, store.Delete(ctx, KeySessionActiveSince))

		_, ok, err := store.Get(ctx, KeySessionActiveSince)
		require.NoError(t, err)
		assert.False(t, ok)

		// Absent key is fine.
		require.NoError(t, store.Delete(ctx, KeySessionActiveSince))
	})
}
