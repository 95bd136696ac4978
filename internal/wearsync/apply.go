package wearsync

import (
	"context"
	"fmt"
	"log/slog"
)

// Apply copies a chosen cached workout's physiological fields onto a
// session, marks the cache row linked, and triggers a best-effort session
// re-score. Both rows must exist and belong to userID, else ErrNotFound.
//
// Idempotent: re-applying the same pair overwrites the session with
// identical values and rewrites the same link.
func (s *Service) Apply(ctx context.Context, userID, sessionID, cacheID int64) error {
	workout, err := s.store.WorkoutByID(ctx, userID, cacheID)
	if err != nil {
		return err
	}

	if workout == nil {
		return fmt.Errorf("wearsync: cached workout %d for user %d: %w", cacheID, userID, ErrNotFound)
	}

	session, err := s.journal.Session(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if session == nil {
		return fmt.Errorf("wearsync: session %d for user %d: %w", sessionID, userID, ErrNotFound)
	}

	phys := workoutPhysiology(workout)

	if err := s.journal.UpdatePhysiology(ctx, userID, sessionID, phys); err != nil {
		return err
	}

	if err := s.store.LinkWorkout(ctx, cacheID, sessionID); err != nil {
		return err
	}

	s.logger.Info("workout applied to session",
		slog.Int64("user_id", userID),
		slog.Int64("session_id", sessionID),
		slog.Int64("cache_id", cacheID),
	)

	s.fireRescore(ctx, userID, sessionID)

	return nil
}

// workoutPhysiology extracts the device-measured fields, deriving calories
// from kilojoules when the cached value is absent.
func workoutPhysiology(w *CachedWorkout) Physiology {
	calories := w.Calories
	if calories == 0 && w.Kilojoule > 0 {
		calories = DeriveCalories(w.Kilojoule)
	}

	return Physiology{
		Strain:       w.Strain,
		Calories:     calories,
		AvgHeartRate: w.AvgHeartRate,
		MaxHeartRate: w.MaxHeartRate,
	}
}
