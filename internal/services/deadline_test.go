package services

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/cbe-service/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDeadlineCoordinatorEstablish(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("ComputesAndPersistsNewDeadline", func(t *testing.T) {
		kv := store.NewMemory()
		coord := NewDeadlineCoordinator(kv, testLogger()).WithClock(fixedClock(start))

		deadline, err := coord.Establish(ctx, "p1", 120)
		require.NoError(t, err)
		assert.Equal(t, start.UnixMilli()+120*60_000, deadline)

		raw, ok, err := kv.Get(ctx, store.DeadlineKey("p1"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, strconv.FormatInt(deadline, 10), raw)
	})

	t.Run("ReusesPersistedDeadline", func(t *testing.T) {
		kv := store.NewMemory()
		coord := NewDeadlineCoordinator(kv, testLogger()).WithClock(fixedClock(start))

		first, err := coord.Establish(ctx, "p1", 120)
		require.NoError(t, err)

		// A later session must converge on the same deadline, not restart
		// the countdown.
		later := NewDeadlineCoordinator(kv, testLogger()).WithClock(fixedClock(start.Add(30 * time.Minute)))
		second, err := later.Establish(ctx, "p1", 120)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("ReplacesMalformedPersistedDeadline", func(t *testing.T) {
		kv := store.NewMemory()
		require.NoError(t, kv.Set(ctx, store.DeadlineKey("p1"), "not-a-number"))

		coord := NewDeadlineCoordinator(kv, testLogger()).WithClock(fixedClock(start))
		deadline, err := coord.Establish(ctx, "p1", 60)
		require.NoError(t, err)
		assert.Equal(t, start.UnixMilli()+60*60_000, deadline)
	})
}

func TestDeadlineCoordinatorClear(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	coord := NewDeadlineCoordinator(kv, testLogger())

	_, err := coord.Establish(ctx, "p1", 60)
	require.NoError(t, err)

	require.NoError(t, coord.Clear(ctx, "p1"))

	_, ok, err := kv.Get(ctx, store.DeadlineKey("p1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline int64
		want     int
	}{
		{"TwoHoursAhead", now.UnixMilli() + 7_200_000, 7200},
		{"ExactlyNow", now.UnixMilli(), 0},
		{"AlreadyPassed", now.UnixMilli() - 5_000, 0},
		{"SubSecondFloorsDown", now.UnixMilli() + 1_500, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.deadline, now))
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "120:00", FormatClock(7200))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "00:00", FormatClock(-3))
}
