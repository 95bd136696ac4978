package wearsync

import (
	"context"
	"time"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/whoop"
)

// Store persists vendor connections and the workout cache. Implemented by
// SQLiteStore; defined as an interface so the engine tests can run against
// fakes where useful.
type Store interface {
	// Connections.
	SaveConnection(ctx context.Context, conn *Connection) error
	Connection(ctx context.Context, userID int64) (*Connection, error) // (nil, nil) when absent
	UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiry time.Time) error
	SetAutoCreate(ctx context.Context, userID int64, enabled bool) error
	DeleteConnection(ctx context.Context, userID int64) error
	ConnectedUserIDs(ctx context.Context) ([]int64, error)

	// Workout cache.
	UpsertWorkouts(ctx context.Context, userID int64, workouts []CachedWorkout) error
	WorkoutsInRange(ctx context.Context, userID int64, start, end time.Time) ([]CachedWorkout, error)
	UnlinkedWorkouts(ctx context.Context, userID int64, sportID int) ([]CachedWorkout, error)
	WorkoutByID(ctx context.Context, userID, cacheID int64) (*CachedWorkout, error) // (nil, nil) when absent
	LinkWorkout(ctx context.Context, cacheID, sessionID int64) error
	PurgeWorkouts(ctx context.Context, userID int64) error
	CountWorkouts(ctx context.Context, userID int64) (total, linked int, err error)
}

// VendorClient is the slice of the vendor API the engine calls.
// *whoop.Client satisfies it.
type VendorClient interface {
	Workouts(ctx context.Context, accessToken string, q whoop.Query) (*whoop.WorkoutPage, error)
	Profile(ctx context.Context, accessToken string) (*whoop.ProfileRecord, error)
	Revoke(ctx context.Context, accessToken string) error
}

// TokenBroker performs the OAuth2 grants the engine needs.
// *whoop.Authenticator satisfies it.
type TokenBroker interface {
	ExchangeCode(ctx context.Context, code string) (*whoop.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*whoop.Token, error)
}

// SessionJournal is the external collaborator owning training sessions.
// The engine only reads timing fields and writes physiology back.
type SessionJournal interface {
	Session(ctx context.Context, userID, sessionID int64) (*Session, error) // (nil, nil) when absent
	CreateSession(ctx context.Context, s *Session) (int64, error)
	UpdatePhysiology(ctx context.Context, userID, sessionID int64, p Physiology) error
}

// ProfileSource resolves per-user settings (timezone, session defaults).
type ProfileSource interface {
	Profile(ctx context.Context, userID int64) (*Profile, error) // (nil, nil) when absent
}

// Rescorer triggers downstream re-scoring of a session after its
// physiological fields change. Failures are logged, never propagated.
type Rescorer interface {
	Rescore(ctx context.Context, userID, sessionID int64) error
}
