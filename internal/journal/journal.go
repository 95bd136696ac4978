// Package journal is a SQLite-backed implementation of the engine's
// external collaborators: the session journal and the per-user profile
// source. In the full application these live behind the journal service;
// this adapter gives the CLI and tests a concrete host to run against.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
)

// schema contains the collaborator tables. Idempotent — applied on every
// open.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          INTEGER NOT NULL,
    date             TEXT    NOT NULL,
    start_time       TEXT    NOT NULL DEFAULT '',
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    gym              TEXT    NOT NULL DEFAULT '',
    training_type    TEXT    NOT NULL DEFAULT '',
    source           TEXT    NOT NULL DEFAULT 'manual',
    needs_review     INTEGER NOT NULL DEFAULT 0,
    strain           REAL    NOT NULL DEFAULT 0,
    calories         INTEGER NOT NULL DEFAULT 0,
    avg_heart_rate   INTEGER NOT NULL DEFAULT 0,
    max_heart_rate   INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON sessions (user_id, date);

CREATE TABLE IF NOT EXISTS profiles (
    user_id               INTEGER PRIMARY KEY,
    timezone              TEXT NOT NULL DEFAULT '',
    default_gym           TEXT NOT NULL DEFAULT '',
    default_training_type TEXT NOT NULL DEFAULT ''
);
`

// Journal stores sessions and profiles in SQLite.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and if needed initializes) the journal tables at dbPath.
// Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: applying schema: %w", err)
	}

	return &Journal{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Session retrieves a session owned by the given user.
// Returns (nil, nil) when absent or owned by someone else.
func (j *Journal) Session(ctx context.Context, userID, sessionID int64) (*wearsync.Session, error) {
	s := &wearsync.Session{}

	var needsReview int

	err := j.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, start_time, duration_minutes, gym,
			training_type, source, needs_review, strain, calories,
			avg_heart_rate, max_heart_rate
		FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID).Scan(
		&s.ID, &s.UserID, &s.Date, &s.StartTime, &s.DurationMinutes, &s.Gym,
		&s.TrainingType, &s.Source, &needsReview, &s.Strain, &s.Calories,
		&s.AvgHeartRate, &s.MaxHeartRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil session means "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("journal: get session %d: %w", sessionID, err)
	}

	s.NeedsReview = needsReview != 0

	return s, nil
}

// CreateSession inserts a new session and returns its id.
func (j *Journal) CreateSession(ctx context.Context, s *wearsync.Session) (int64, error) {
	j.logger.Debug("creating session",
		"user_id", s.UserID, "date", s.Date, "source", s.Source)

	now := time.Now().Unix()

	needsReview := 0
	if s.NeedsReview {
		needsReview = 1
	}

	result, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions
			(user_id, date, start_time, duration_minutes, gym, training_type,
			 source, needs_review, strain, calories, avg_heart_rate,
			 max_heart_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Date, s.StartTime, s.DurationMinutes, s.Gym,
		s.TrainingType, s.Source, needsReview, s.Strain, s.Calories,
		s.AvgHeartRate, s.MaxHeartRate, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("journal: create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: create session id: %w", err)
	}

	return id, nil
}

// UpdatePhysiology writes the device-measured fields onto a session.
func (j *Journal) UpdatePhysiology(
	ctx context.Context, userID, sessionID int64, p wearsync.Physiology,
) error {
	result, err := j.db.ExecContext(ctx,
		`UPDATE sessions
		SET strain = ?, calories = ?, avg_heart_rate = ?, max_heart_rate = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		p.Strain, p.Calories, p.AvgHeartRate, p.MaxHeartRate,
		time.Now().Unix(), sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("journal: update physiology %d: %w", sessionID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: update physiology %d rows affected: %w", sessionID, err)
	}

	if rows == 0 {
		return fmt.Errorf("journal: session %d for user %d: %w",
			sessionID, userID, wearsync.ErrNotFound)
	}

	return nil
}

// Profile retrieves a user's profile. Returns (nil, nil) when absent.
func (j *Journal) Profile(ctx context.Context, userID int64) (*wearsync.Profile, error) {
	p := &wearsync.Profile{}

	err := j.db.QueryRowContext(ctx,
		`SELECT timezone, default_gym, default_training_type
		FROM profiles WHERE user_id = ?`, userID).Scan(
		&p.Timezone, &p.DefaultGym, &p.DefaultTrainingType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil profile means "not set up"
	}

	if err != nil {
		return nil, fmt.Errorf("journal: get profile %d: %w", userID, err)
	}

	return p, nil
}

// SaveProfile inserts or replaces a user's profile.
func (j *Journal) SaveProfile(ctx context.Context, userID int64, p *wearsync.Profile) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, timezone, default_gym, default_training_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			timezone              = excluded.timezone,
			default_gym           = excluded.default_gym,
			default_training_type = excluded.default_training_type`,
		userID, p.Timezone, p.DefaultGym, p.DefaultTrainingType,
	)
	if err != nil {
		return fmt.Errorf("journal: save profile %d: %w", userID, err)
	}

	return nil
}

// Compile-time interface checks.
var (
	_ wearsync.SessionJournal = (*Journal)(nil)
	_ wearsync.ProfileSource  = (*Journal)(nil)
)
