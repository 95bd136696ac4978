package wearsync

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/whoop"
)

// AutoCreate turns the user's unlinked tracked-sport workouts into new
// review-flagged journal sessions. No-op unless the user opted in via the
// connection's auto-create flag.
//
// Each workout is processed independently: one failure is logged and
// skipped, never aborting the batch — fault isolation over batch atomicity.
// Returns the ids of the sessions actually created.
func (s *Service) AutoCreate(ctx context.Context, userID int64) ([]int64, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !conn.AutoCreate {
		s.logger.Debug("auto-create disabled", slog.Int64("user_id", userID))
		return nil, nil
	}

	defaults := s.profileDefaults(ctx, userID)

	workouts, err := s.store.UnlinkedWorkouts(ctx, userID, whoop.SportJiuJitsu)
	if err != nil {
		return nil, err
	}

	var created []int64

	for i := range workouts {
		id, ok := s.autoCreateOne(ctx, userID, &workouts[i], defaults)
		if ok {
			created = append(created, id)
		}
	}

	s.logger.Info("auto-create complete",
		slog.Int64("user_id", userID),
		slog.Int("unlinked", len(workouts)),
		slog.Int("created", len(created)),
	)

	return created, nil
}

// autoCreateOne builds and stores one session from a cached workout,
// then links the row and fires a best-effort rescore. Returns false when
// the workout was skipped or any step failed.
func (s *Service) autoCreateOne(
	ctx context.Context, userID int64, w *CachedWorkout, defaults Profile,
) (int64, bool) {
	if w.StartTime.IsZero() {
		s.logger.Warn("skipping workout with missing start time",
			slog.Int64("user_id", userID),
			slog.Int64("vendor_id", w.VendorID),
		)

		return 0, false
	}

	session := sessionFromWorkout(userID, w, defaults)

	sessionID, err := s.journal.CreateSession(ctx, session)
	if err != nil {
		s.logger.Warn("auto-create session failed, skipping workout",
			slog.Int64("user_id", userID),
			slog.Int64("vendor_id", w.VendorID),
			slog.String("error", err.Error()),
		)

		return 0, false
	}

	if err := s.store.LinkWorkout(ctx, w.ID, sessionID); err != nil {
		s.logger.Warn("linking auto-created session failed",
			slog.Int64("user_id", userID),
			slog.Int64("session_id", sessionID),
			slog.String("error", err.Error()),
		)

		return 0, false
	}

	s.fireRescore(ctx, userID, sessionID)

	return sessionID, true
}

// sessionFromWorkout derives the local date, "HH:MM" start, and duration
// from the workout's own vendor-reported offset — there is no anchoring
// session whose profile timezone could be used instead.
func sessionFromWorkout(userID int64, w *CachedWorkout, defaults Profile) *Session {
	local := w.StartTime.In(offsetLocation(w.TimezoneOffset))

	minutes := int(w.EndTime.Sub(w.StartTime).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	calories := w.Calories
	if calories == 0 && w.Kilojoule > 0 {
		calories = DeriveCalories(w.Kilojoule)
	}

	return &Session{
		UserID:          userID,
		Date:            local.Format("2006-01-02"),
		StartTime:       local.Format("15:04"),
		DurationMinutes: minutes,
		Gym:             defaults.DefaultGym,
		TrainingType:    defaults.DefaultTrainingType,
		Source:          SessionSourceDevice,
		NeedsReview:     true,
		Strain:          w.Strain,
		Calories:        calories,
		AvgHeartRate:    w.AvgHeartRate,
		MaxHeartRate:    w.MaxHeartRate,
	}
}

// profileDefaults loads the user's session defaults, degrading to empty
// defaults when the profile is missing or unreadable.
func (s *Service) profileDefaults(ctx context.Context, userID int64) Profile {
	prof, err := s.profile.Profile(ctx, userID)
	if err != nil {
		s.logger.Warn("loading profile defaults failed, using empty defaults",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)

		return Profile{}
	}

	if prof == nil {
		return Profile{}
	}

	return *prof
}

// offsetLocation parses a vendor offset like "+05:30" or "-08:00" into a
// fixed zone. Unparseable offsets degrade to UTC.
func offsetLocation(offset string) *time.Location {
	trimmed := strings.TrimSpace(offset)
	if trimmed == "" {
		return time.UTC
	}

	sign := 1

	switch trimmed[0] {
	case '+':
		trimmed = trimmed[1:]
	case '-':
		sign = -1
		trimmed = trimmed[1:]
	}

	parts := strings.Split(trimmed, ":")

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.UTC
	}

	minutes := 0

	if len(parts) > 1 {
		minutes, err = strconv.Atoi(parts[1])
		if err != nil {
			return time.UTC
		}
	}

	seconds := sign * (hours*3600 + minutes*60)

	return time.FixedZone(offset, seconds)
}
