package wearsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/whoop"
)

const (
	// defaultSyncDays is the trailing window when the caller passes a
	// non-positive days-back value.
	defaultSyncDays = 7

	// tokenExpiryMargin refreshes tokens slightly before their reported
	// expiry so a token cannot lapse mid-pagination.
	tokenExpiryMargin = time.Minute
)

// Sync refreshes the user's access token if expired, pages through the
// vendor's workouts for the trailing daysBack window, normalizes each
// record, and upserts the batch into the cache in one transaction.
//
// The call is all-or-nothing: a refresh failure or any page failure aborts
// with no cache mutation. Re-invocation is always safe because the upsert
// is idempotent per vendor workout id. Returns the number of records
// fetched from the vendor.
func (s *Service) Sync(ctx context.Context, userID int64, daysBack int) (int, error) {
	if daysBack <= 0 {
		daysBack = defaultSyncDays
	}

	runID := uuid.New().String()
	logger := s.logger.With(
		slog.String("sync_run", runID),
		slog.Int64("user_id", userID),
	)

	conn, err := s.connection(ctx, userID)
	if err != nil {
		return 0, err
	}

	accessToken, err := s.freshAccessToken(ctx, conn, logger)
	if err != nil {
		return 0, err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	logger.Info("sync started",
		slog.Time("window_start", start),
		slog.Time("window_end", end),
	)

	records, err := s.fetchAllWorkouts(ctx, accessToken, start, end)
	if err != nil {
		return 0, fmt.Errorf("wearsync: sync user %d: %w", userID, err)
	}

	workouts := make([]CachedWorkout, 0, len(records))
	for i := range records {
		workouts = append(workouts, normalizeWorkout(&records[i]))
	}

	if err := s.store.UpsertWorkouts(ctx, userID, workouts); err != nil {
		return 0, err
	}

	logger.Info("sync complete", slog.Int("records", len(records)))

	return len(records), nil
}

// freshAccessToken returns a usable access token, refreshing and persisting
// the new pair first when the stored token is expired. A refresh failure
// aborts the sync before any cache mutation.
func (s *Service) freshAccessToken(ctx context.Context, conn *Connection, logger *slog.Logger) (string, error) {
	if !conn.TokenExpired(time.Now().Add(tokenExpiryMargin)) {
		return conn.AccessToken, nil
	}

	logger.Info("access token expired, refreshing", slog.Time("expiry", conn.TokenExpiry))

	tok, err := s.broker.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("wearsync: refreshing token for user %d: %w", conn.UserID, err)
	}

	// Persist before paging: the vendor rotates refresh tokens, so losing
	// the new pair would strand the connection.
	if err := s.store.UpdateTokens(ctx, conn.UserID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// fetchAllWorkouts pages through the vendor's workout collection until the
// cursor is exhausted, accumulating every record. Any page failure aborts
// the whole fetch — resuming a partial cursor blindly is unsafe.
func (s *Service) fetchAllWorkouts(
	ctx context.Context, accessToken string, start, end time.Time,
) ([]whoop.WorkoutRecord, error) {
	var all []whoop.WorkoutRecord

	cursor := ""

	for {
		page, err := s.client.Workouts(ctx, accessToken, whoop.Query{
			Start:  start,
			End:    end,
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page.Records...)

		if page.NextToken == "" {
			return all, nil
		}

		cursor = page.NextToken
	}
}

// normalizeWorkout converts a vendor record to a cache row: UTC instants,
// the start<=end invariant enforced by clamping, and calories derived from
// kilojoules. Unscored workouts keep zero metrics.
func normalizeWorkout(rec *whoop.WorkoutRecord) CachedWorkout {
	w := CachedWorkout{
		VendorID:       rec.ID,
		SportID:        rec.SportID,
		StartTime:      rec.Start.UTC(),
		EndTime:        rec.End.UTC(),
		TimezoneOffset: rec.TimezoneOffset,
	}

	if w.EndTime.Before(w.StartTime) {
		w.EndTime = w.StartTime
	}

	if rec.Scored() {
		w.Strain = rec.Score.Strain
		w.Kilojoule = rec.Score.Kilojoule
		w.Calories = DeriveCalories(rec.Score.Kilojoule)
		w.AvgHeartRate = rec.Score.AverageHeartRate
		w.MaxHeartRate = rec.Score.MaxHeartRate
	}

	return w
}
