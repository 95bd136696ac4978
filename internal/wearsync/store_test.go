package wearsync

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level slog.Logger writing through testing.T.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(&testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// testWriter adapts testing.T to io.Writer for slog output.
type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// newTestStore creates an in-memory SQLiteStore for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewStore(":memory:", testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

// makeTestConnection builds a Connection with sane defaults.
func makeTestConnection(userID int64) *Connection {
	return &Connection{
		UserID:       userID,
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenExpiry:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		VendorUserID: 9001,
	}
}

// makeTestWorkout builds a CachedWorkout starting at the given UTC time.
func makeTestWorkout(vendorID int64, start time.Time, dur time.Duration) CachedWorkout {
	return CachedWorkout{
		VendorID:       vendorID,
		SportID:        39,
		StartTime:      start,
		EndTime:        start.Add(dur),
		TimezoneOffset: "+00:00",
		Strain:         12.5,
		Kilojoule:      1673.6,
		Calories:       400,
		AvgHeartRate:   150,
		MaxHeartRate:   185,
	}
}

func TestConnectionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("absent connection is nil, nil", func(t *testing.T) {
		conn, err := store.Connection(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, conn)
	})

	t.Run("save then get", func(t *testing.T) {
		require.NoError(t, store.SaveConnection(ctx, makeTestConnection(1)))

		got, err := store.Connection(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "at-1", got.AccessToken)
		assert.Equal(t, "rt-1", got.RefreshToken)
		assert.Equal(t, int64(9001), got.VendorUserID)
		assert.False(t, got.AutoCreate)
		assert.True(t, got.TokenExpiry.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("save is an upsert on user_id", func(t *testing.T) {
		conn := makeTestConnection(1)
		conn.AccessToken = "at-reconnect"
		require.NoError(t, store.SaveConnection(ctx, conn))

		got, err := store.Connection(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "at-reconnect", got.AccessToken)

		ids, err := store.ConnectedUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)
	})
}

func TestUpdateTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConnection(ctx, makeTestConnection(1)))

	newExpiry := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateTokens(ctx, 1, "at-2", "rt-2", newExpiry))

	got, err := store.Connection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "at-2", got.AccessToken)
	assert.Equal(t, "rt-2", got.RefreshToken)
	assert.True(t, got.TokenExpiry.Equal(newExpiry))

	t.Run("missing user is ErrNotFound", func(t *testing.T) {
		err := store.UpdateTokens(ctx, 404, "x", "y", newExpiry)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSetAutoCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConnection(ctx, makeTestConnection(1)))

	require.NoError(t, store.SetAutoCreate(ctx, 1, true))

	got, err := store.Connection(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.AutoCreate)

	t.Run("missing user is ErrNotFound", func(t *testing.T) {
		assert.ErrorIs(t, store.SetAutoCreate(ctx, 404, true), ErrNotFound)
	})
}

func TestDeleteConnection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConnection(ctx, makeTestConnection(1)))
	require.NoError(t, store.DeleteConnection(ctx, 1))

	conn, err := store.Connection(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, conn)

	// Deleting an absent row is not an error.
	require.NoError(t, store.DeleteConnection(ctx, 1))
}

func TestUpsertWorkouts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.UpsertWorkouts(ctx, 1, nil))
	})

	t.Run("repeat upsert keeps one row per vendor id", func(t *testing.T) {
		w := makeTestWorkout(100, base, time.Hour)
		require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{w}))

		w.Strain = 15.0
		require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{w}))

		total, _, err := store.CountWorkouts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		got, err := store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 15.0, got[0].Strain, 0.001)
	})

	t.Run("upsert preserves an existing link", func(t *testing.T) {
		got, err := store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NoError(t, store.LinkWorkout(ctx, got[0].ID, 77))

		w := makeTestWorkout(100, base, time.Hour)
		require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{w}))

		relinked, err := store.WorkoutByID(ctx, 1, got[0].ID)
		require.NoError(t, err)
		require.NotNil(t, relinked.LinkedSessionID)
		assert.Equal(t, int64(77), *relinked.LinkedSessionID)
	})

	t.Run("same vendor id under another user is a separate row", func(t *testing.T) {
		w := makeTestWorkout(100, base, time.Hour)
		require.NoError(t, store.UpsertWorkouts(ctx, 2, []CachedWorkout{w}))

		total, _, err := store.CountWorkouts(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}

func TestWorkoutsInRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{
		makeTestWorkout(1, base, time.Hour),                    // 10:00-11:00
		makeTestWorkout(2, base.Add(3*time.Hour), time.Hour),   // 13:00-14:00
		makeTestWorkout(3, base.Add(-2*time.Hour), time.Minute), // 08:00-08:01
	}))

	t.Run("intersection bounds are inclusive", func(t *testing.T) {
		// Window ends exactly at the first workout's start.
		got, err := store.WorkoutsInRange(ctx, 1, base.Add(-time.Hour), base)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].VendorID)
	})

	t.Run("ordered by start time", func(t *testing.T) {
		got, err := store.WorkoutsInRange(ctx, 1, base.Add(-3*time.Hour), base.Add(5*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, int64(3), got[0].VendorID)
		assert.Equal(t, int64(1), got[1].VendorID)
		assert.Equal(t, int64(2), got[2].VendorID)
	})

	t.Run("disjoint window is empty", func(t *testing.T) {
		got, err := store.WorkoutsInRange(ctx, 1, base.Add(6*time.Hour), base.Add(7*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("other users are invisible", func(t *testing.T) {
		got, err := store.WorkoutsInRange(ctx, 2, base.Add(-3*time.Hour), base.Add(5*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUnlinkedWorkouts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	bjj := makeTestWorkout(1, base, time.Hour)
	running := makeTestWorkout(2, base.Add(2*time.Hour), time.Hour)
	running.SportID = 0

	require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{bjj, running}))

	t.Run("filters by sport", func(t *testing.T) {
		got, err := store.UnlinkedWorkouts(ctx, 1, 39)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].VendorID)
	})

	t.Run("linked rows drop out", func(t *testing.T) {
		got, err := store.UnlinkedWorkouts(ctx, 1, 39)
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NoError(t, store.LinkWorkout(ctx, got[0].ID, 55))

		got, err = store.UnlinkedWorkouts(ctx, 1, 39)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestWorkoutByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{makeTestWorkout(1, base, time.Hour)}))

	rows, err := store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	t.Run("owner sees the row", func(t *testing.T) {
		w, err := store.WorkoutByID(ctx, 1, rows[0].ID)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, int64(1), w.VendorID)
	})

	t.Run("other users get nil, nil", func(t *testing.T) {
		w, err := store.WorkoutByID(ctx, 2, rows[0].ID)
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("missing id is nil, nil", func(t *testing.T) {
		w, err := store.WorkoutByID(ctx, 1, 999999)
		require.NoError(t, err)
		assert.Nil(t, w)
	})
}

func TestLinkWorkout(t *testing.T) {
	store := newTestStore(t)

	t.Run("missing row is ErrNotFound", func(t *testing.T) {
		assert.ErrorIs(t, store.LinkWorkout(context.Background(), 999, 1), ErrNotFound)
	})
}

func TestPurgeWorkouts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{
		makeTestWorkout(1, base, time.Hour),
		makeTestWorkout(2, base.Add(2*time.Hour), time.Hour),
	}))
	require.NoError(t, store.UpsertWorkouts(ctx, 2, []CachedWorkout{
		makeTestWorkout(3, base, time.Hour),
	}))

	require.NoError(t, store.PurgeWorkouts(ctx, 1))

	total, _, err := store.CountWorkouts(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, total)

	// Other users keep their cache.
	total, _, err = store.CountWorkouts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCountWorkouts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertWorkouts(ctx, 1, []CachedWorkout{
		makeTestWorkout(1, base, time.Hour),
		makeTestWorkout(2, base.Add(2*time.Hour), time.Hour),
	}))

	rows, err := store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, store.LinkWorkout(ctx, rows[0].ID, 7))

	total, linked, err := store.CountWorkouts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, linked)
}
