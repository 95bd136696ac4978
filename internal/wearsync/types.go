// Package wearsync reconciles wearable-device telemetry against user-entered
// training sessions. It owns the per-user vendor connection, a durable cache
// of normalized workout records, the sync orchestrator that fills it, the
// correlation engine that ranks cache rows against a session, and the
// auto-link/auto-create steps that write results back to the journal.
package wearsync

import (
	"math"
	"time"
)

// kilojoulesPerKilocalorie converts the vendor's energy unit to the dietary
// calories the journal displays.
const kilojoulesPerKilocalorie = 4.184

// Connection is a user's link to the vendor: OAuth tokens, the vendor-side
// user id, and the auto-create opt-in. One row per user.
type Connection struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	VendorUserID int64
	AutoCreate   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenExpired reports whether the access token is stale at the given
// instant. A zero expiry means the vendor never reported one; treat the
// token as expired so the next sync refreshes it.
func (c *Connection) TokenExpired(now time.Time) bool {
	return c.TokenExpiry.IsZero() || !c.TokenExpiry.After(now)
}

// CachedWorkout is one normalized vendor workout in the local cache.
// Start/End are UTC instants; TimezoneOffset is the vendor-reported local
// offset, retained only for local-time derivation, never for query logic.
//
// LinkedSessionID is a weak reference: it names a journal session but does
// not own or require its existence.
type CachedWorkout struct {
	ID              int64
	UserID          int64
	VendorID        int64
	SportID         int
	StartTime       time.Time
	EndTime         time.Time
	TimezoneOffset  string
	Strain          float64
	Kilojoule       float64
	Calories        int
	AvgHeartRate    int
	MaxHeartRate    int
	LinkedSessionID *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration returns the workout's length. A zero-length interval counts as a
// one-second point per the cache invariant.
func (w *CachedWorkout) Duration() time.Duration {
	d := w.EndTime.Sub(w.StartTime)
	if d <= 0 {
		return time.Second
	}

	return d
}

// DeriveCalories converts vendor kilojoules to kilocalories, rounded to the
// nearest whole calorie.
func DeriveCalories(kilojoule float64) int {
	return int(math.Round(kilojoule / kilojoulesPerKilocalorie))
}

// SessionDescriptor identifies the training session being correlated:
// its user-entered local date, start time, and duration.
//
// SessionID is optional (0 when the session is unsaved); when set, cache
// rows already linked to that session are not re-offered as candidates.
type SessionDescriptor struct {
	SessionID       int64
	LocalDate       string // "2006-01-02"
	LocalStart      string // "15:04"
	DurationMinutes int
}

// MatchCandidate is a cached workout annotated with its temporal overlap
// against one session. Transient — never persisted.
type MatchCandidate struct {
	Workout    CachedWorkout
	OverlapPct float64
}

// Session is the journal entity this engine reads timing from and writes
// physiology onto. Owned by the host application; the engine sees it only
// through the SessionJournal interface.
type Session struct {
	ID              int64
	UserID          int64
	Date            string // "2006-01-02"
	StartTime       string // "15:04"
	DurationMinutes int
	Gym             string
	TrainingType    string
	Source          string
	NeedsReview     bool
	Strain          float64
	Calories        int
	AvgHeartRate    int
	MaxHeartRate    int
}

// Physiology is the set of device-measured fields copied onto a session.
type Physiology struct {
	Strain       float64
	Calories     int
	AvgHeartRate int
	MaxHeartRate int
}

// Profile carries the per-user settings the engine reads: the stored IANA
// timezone (empty means UTC) and defaults for vendor-silent session context.
type Profile struct {
	Timezone            string
	DefaultGym          string
	DefaultTrainingType string
}

// SessionSourceDevice marks sessions created from device telemetry rather
// than manual entry. Auto-created sessions also carry NeedsReview until the
// user confirms them.
const SessionSourceDevice = "device"
