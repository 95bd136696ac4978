package wearsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

const (
	// slackWindow is the ± margin added around a session's computed UTC
	// interval before querying the cache. Manually-entered start times are
	// imprecise; two hours absorbs the usual drift.
	slackWindow = 2 * time.Hour

	// minOverlapPct is the candidate threshold: workouts covering less
	// than this share of the shorter interval are never offered.
	minOverlapPct = 30.0

	// onDemandSyncDays is the lookback for the single compensating sync
	// triggered when the cache has nothing in the search window.
	onDemandSyncDays = 3

	// syntheticDurationMinutes stands in for a zero-duration session so
	// the interval math stays meaningful.
	syntheticDurationMinutes = 60

	localTimeLayout = "2006-01-02 15:04"
)

// FindMatches computes the session's UTC interval from its local date,
// "HH:MM" start, and duration in the user's timezone (UTC when tz is empty
// or unparseable), then ranks cached workouts by temporal overlap.
//
// If the slack-expanded window finds nothing, exactly one on-demand sync
// runs and the cache is re-queried once. A failed sync and an empty cache
// look identical to the caller: an empty slice, nil error. Errors are
// reserved for caller misuse — a malformed LocalStart returns
// ErrInvalidTime, a missing connection surfaces from the triggered sync
// path only as an empty result.
func (s *Service) FindMatches(
	ctx context.Context, userID int64, desc SessionDescriptor, tz string,
) ([]MatchCandidate, error) {
	loc := s.resolveLocation(tz)

	sessionStart, err := time.ParseInLocation(localTimeLayout, desc.LocalDate+" "+desc.LocalStart, loc)
	if err != nil {
		return nil, fmt.Errorf("wearsync: parsing session time %q %q: %w",
			desc.LocalDate, desc.LocalStart, ErrInvalidTime)
	}

	sessionStart = sessionStart.UTC()

	minutes := desc.DurationMinutes
	if minutes <= 0 {
		minutes = syntheticDurationMinutes
	}

	sessionDur := time.Duration(minutes) * time.Minute
	sessionEnd := sessionStart.Add(sessionDur)

	searchStart := sessionStart.Add(-slackWindow)
	searchEnd := sessionEnd.Add(slackWindow)

	s.logger.Debug("searching workout cache",
		slog.Int64("user_id", userID),
		slog.Time("session_start", sessionStart),
		slog.Time("session_end", sessionEnd),
	)

	workouts, err := s.store.WorkoutsInRange(ctx, userID, searchStart, searchEnd)
	if err != nil {
		return nil, err
	}

	if len(workouts) == 0 {
		workouts, err = s.syncOnceAndRequery(ctx, userID, searchStart, searchEnd)
		if err != nil {
			return nil, err
		}
	}

	candidates := scoreCandidates(workouts, desc.SessionID, sessionStart, sessionEnd, sessionDur)

	s.logger.Info("correlation complete",
		slog.Int64("user_id", userID),
		slog.Int("cached", len(workouts)),
		slog.Int("candidates", len(candidates)),
	)

	return candidates, nil
}

// syncOnceAndRequery is the compensating action for an empty search window:
// one on-demand sync with a short lookback, then one re-query. A sync
// failure is logged and swallowed — by contract this path never raises.
// This is deliberately a single explicit function, not a retry policy.
func (s *Service) syncOnceAndRequery(
	ctx context.Context, userID int64, searchStart, searchEnd time.Time,
) ([]CachedWorkout, error) {
	if _, err := s.Sync(ctx, userID, onDemandSyncDays); err != nil {
		s.logger.Warn("on-demand sync failed, returning no matches",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)

		return nil, nil
	}

	return s.store.WorkoutsInRange(ctx, userID, searchStart, searchEnd)
}

// scoreCandidates computes overlap percentages, drops rows under the
// threshold or already linked to the session being matched, and returns the
// survivors sorted by overlap descending. The sort is stable: ties keep
// cache order.
func scoreCandidates(
	workouts []CachedWorkout, sessionID int64, sessionStart, sessionEnd time.Time, sessionDur time.Duration,
) []MatchCandidate {
	candidates := make([]MatchCandidate, 0, len(workouts))

	for i := range workouts {
		w := &workouts[i]

		if sessionID != 0 && w.LinkedSessionID != nil && *w.LinkedSessionID == sessionID {
			continue
		}

		pct := overlapPct(sessionStart, sessionEnd, sessionDur, w)
		if pct < minOverlapPct {
			continue
		}

		candidates = append(candidates, MatchCandidate{Workout: *w, OverlapPct: pct})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].OverlapPct > candidates[j].OverlapPct
	})

	return candidates
}

// overlapPct is the percentage of the shorter interval covered by the
// intersection: overlap / min(sessionDur, workoutDur), clamped to [0,100].
// Full containment therefore scores 100 relative to the shorter interval,
// not the union. A degenerate workout duration falls back to sessionDur.
func overlapPct(sessionStart, sessionEnd time.Time, sessionDur time.Duration, w *CachedWorkout) float64 {
	wStart := w.StartTime
	wEnd := w.EndTime

	// Equal instants are a 1-second point per the cache invariant.
	if !wEnd.After(wStart) {
		wEnd = wStart.Add(time.Second)
	}

	overlap := minTime(sessionEnd, wEnd).Sub(maxTime(sessionStart, wStart))
	if overlap < 0 {
		overlap = 0
	}

	denom := sessionDur
	if wDur := wEnd.Sub(wStart); wDur < denom && wDur > 0 {
		denom = wDur
	}

	if denom <= 0 {
		denom = sessionDur
	}

	pct := overlap.Seconds() / denom.Seconds() * 100

	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}
