package whoop

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"
)

// API paths for the collection and singleton resources.
const (
	pathWorkouts        = "/v1/activity/workout"
	pathRecoveries      = "/v1/recovery"
	pathSleeps          = "/v1/activity/sleep"
	pathCycles          = "/v1/cycle"
	pathProfile         = "/v1/user/profile/basic"
	pathBodyMeasurement = "/v1/user/measurement/body"
)

// defaultPageLimit is the per-page record count requested when the caller
// does not set one. The vendor caps pages at 25.
const defaultPageLimit = 25

// Query bounds a paginated collection fetch. Zero Start/End omit the bound;
// Cursor is the opaque next_token from the previous page.
type Query struct {
	Start  time.Time
	End    time.Time
	Cursor string
	Limit  int
}

// values encodes the query as URL parameters the vendor understands.
func (q Query) values() url.Values {
	v := url.Values{}

	if !q.Start.IsZero() {
		v.Set("start", q.Start.UTC().Format(time.RFC3339))
	}

	if !q.End.IsZero() {
		v.Set("end", q.End.UTC().Format(time.RFC3339))
	}

	if q.Cursor != "" {
		v.Set("nextToken", q.Cursor)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	v.Set("limit", strconv.Itoa(limit))

	return v
}

// pageEnvelope mirrors the vendor's collection response shape.
// Unexported — callers receive typed pages.
type pageEnvelope[T any] struct {
	Records   []T    `json:"records"`
	NextToken string `json:"next_token"`
}

// fetchPage performs one paginated collection GET and decodes the envelope.
func fetchPage[T any](ctx context.Context, c *Client, accessToken, path string, q Query) (*pageEnvelope[T], error) {
	body, err := c.get(ctx, accessToken, path, q.values())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var env pageEnvelope[T]
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return nil, newAPIError(0, "decoding response: "+err.Error())
	}

	c.logger.Debug("fetched page",
		slog.String("path", path),
		slog.Int("records", len(env.Records)),
		slog.Bool("has_next", env.NextToken != ""),
	)

	return &env, nil
}

// Workouts fetches one page of workouts within the query bounds.
func (c *Client) Workouts(ctx context.Context, accessToken string, q Query) (*WorkoutPage, error) {
	env, err := fetchPage[WorkoutRecord](ctx, c, accessToken, pathWorkouts, q)
	if err != nil {
		return nil, err
	}

	return &WorkoutPage{Records: env.Records, NextToken: env.NextToken}, nil
}

// Recoveries fetches one page of recovery records.
func (c *Client) Recoveries(ctx context.Context, accessToken string, q Query) (*RecoveryPage, error) {
	env, err := fetchPage[RecoveryRecord](ctx, c, accessToken, pathRecoveries, q)
	if err != nil {
		return nil, err
	}

	return &RecoveryPage{Records: env.Records, NextToken: env.NextToken}, nil
}

// Sleeps fetches one page of sleep records.
func (c *Client) Sleeps(ctx context.Context, accessToken string, q Query) (*SleepPage, error) {
	env, err := fetchPage[SleepRecord](ctx, c, accessToken, pathSleeps, q)
	if err != nil {
		return nil, err
	}

	return &SleepPage{Records: env.Records, NextToken: env.NextToken}, nil
}

// Cycles fetches one page of physiological cycles.
func (c *Client) Cycles(ctx context.Context, accessToken string, q Query) (*CyclePage, error) {
	env, err := fetchPage[CycleRecord](ctx, c, accessToken, pathCycles, q)
	if err != nil {
		return nil, err
	}

	return &CyclePage{Records: env.Records, NextToken: env.NextToken}, nil
}

// Profile fetches the connected user's basic profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*ProfileRecord, error) {
	body, err := c.get(ctx, accessToken, pathProfile, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var rec ProfileRecord
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		return nil, newAPIError(0, "decoding profile: "+err.Error())
	}

	return &rec, nil
}

// BodyMeasurement fetches the user's latest body measurement.
func (c *Client) BodyMeasurement(ctx context.Context, accessToken string) (*BodyMeasurementRecord, error) {
	body, err := c.get(ctx, accessToken, pathBodyMeasurement, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var rec BodyMeasurementRecord
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		return nil, newAPIError(0, "decoding body measurement: "+err.Error())
	}

	return &rec, nil
}
