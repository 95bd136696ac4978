package wearsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedApplyFixture caches one workout for user 1 and stores one session,
// returning both ids.
func seedApplyFixture(t *testing.T, env *testEnv) (cacheID, sessionID int64) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, env.store.UpsertWorkouts(ctx, 1, []CachedWorkout{makeTestWorkout(1, base, time.Hour)}))

	rows, err := env.store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	sessionID, err = env.journal.CreateSession(ctx, &Session{
		UserID:          1,
		Date:            "2026-02-15",
		StartTime:       "10:00",
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	return rows[0].ID, sessionID
}

func TestApply(t *testing.T) {
	t.Run("copies physiology and links the row", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, sessionID := seedApplyFixture(t, env)

		require.NoError(t, env.svc.Apply(context.Background(), 1, sessionID, cacheID))

		require.Len(t, env.journal.physCalls, 1)
		phys := env.journal.physCalls[0]
		assert.InDelta(t, 12.5, phys.Strain, 0.001)
		assert.Equal(t, 400, phys.Calories)
		assert.Equal(t, 150, phys.AvgHeartRate)
		assert.Equal(t, 185, phys.MaxHeartRate)

		w, err := env.store.WorkoutByID(context.Background(), 1, cacheID)
		require.NoError(t, err)
		require.NotNil(t, w.LinkedSessionID)
		assert.Equal(t, sessionID, *w.LinkedSessionID)

		assert.Equal(t, []int64{sessionID}, env.rescore.calls)
	})

	t.Run("re-applying the same pair is idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, sessionID := seedApplyFixture(t, env)

		require.NoError(t, env.svc.Apply(context.Background(), 1, sessionID, cacheID))
		require.NoError(t, env.svc.Apply(context.Background(), 1, sessionID, cacheID))

		require.Len(t, env.journal.physCalls, 2)
		assert.Equal(t, env.journal.physCalls[0], env.journal.physCalls[1])

		w, err := env.store.WorkoutByID(context.Background(), 1, cacheID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, *w.LinkedSessionID)
	})

	t.Run("missing cache row is ErrNotFound", func(t *testing.T) {
		env := newTestEnv(t)
		_, sessionID := seedApplyFixture(t, env)

		err := env.svc.Apply(context.Background(), 1, sessionID, 999999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing session is ErrNotFound and leaves the row unlinked", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, _ := seedApplyFixture(t, env)

		err := env.svc.Apply(context.Background(), 1, 999999, cacheID)
		assert.ErrorIs(t, err, ErrNotFound)

		w, err := env.store.WorkoutByID(context.Background(), 1, cacheID)
		require.NoError(t, err)
		assert.Nil(t, w.LinkedSessionID)
	})

	t.Run("another user's rows are invisible", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, sessionID := seedApplyFixture(t, env)

		err := env.svc.Apply(context.Background(), 2, sessionID, cacheID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("calories derive from kilojoules when cached as zero", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
		w := makeTestWorkout(1, base, time.Hour)
		w.Calories = 0
		w.Kilojoule = 418.4
		require.NoError(t, env.store.UpsertWorkouts(ctx, 1, []CachedWorkout{w}))

		rows, err := env.store.WorkoutsInRange(ctx, 1, base, base.Add(time.Hour))
		require.NoError(t, err)

		sessionID, err := env.journal.CreateSession(ctx, &Session{UserID: 1, Date: "2026-02-15"})
		require.NoError(t, err)

		require.NoError(t, env.svc.Apply(ctx, 1, sessionID, rows[0].ID))

		require.Len(t, env.journal.physCalls, 1)
		assert.Equal(t, 100, env.journal.physCalls[0].Calories)
	})

	t.Run("rescore failure does not fail the apply", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, sessionID := seedApplyFixture(t, env)
		env.rescore.err = errors.New("pipeline down")

		require.NoError(t, env.svc.Apply(context.Background(), 1, sessionID, cacheID))
	})

	t.Run("physiology write failure leaves the row unlinked", func(t *testing.T) {
		env := newTestEnv(t)
		cacheID, sessionID := seedApplyFixture(t, env)
		env.journal.physErr = errors.New("journal down")

		err := env.svc.Apply(context.Background(), 1, sessionID, cacheID)
		require.Error(t, err)

		w, err := env.store.WorkoutByID(context.Background(), 1, cacheID)
		require.NoError(t, err)
		assert.Nil(t, w.LinkedSessionID)
	})
}

func TestDeriveCalories(t *testing.T) {
	assert.Equal(t, 100, DeriveCalories(418.4))
	assert.Equal(t, 0, DeriveCalories(0))
	assert.Equal(t, 239, DeriveCalories(1000)) // 239.0 kcal
}
