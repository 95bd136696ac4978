package wearsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// SQLiteStore implements the Store interface using an embedded SQLite
// database with WAL mode. Connections and the workout cache are persisted
// here; timestamps are stored as Unix seconds, always UTC.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	connStmts    connectionStatements
	workoutStmts workoutStatements
}

type connectionStatements struct {
	save, get, updateTokens, setAutoCreate, del, listUsers *sql.Stmt
}

type workoutStatements struct {
	upsert, inRange, unlinked, byID, link, purge, count *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and prepares
// all repeated statements. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening wearable sync database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("wearsync: open sqlite: %w", err)
	}

	// A single connection keeps the sole-writer invariant that makes the
	// transactional upsert race-safe across concurrent syncs.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("wearsync: prepare statements: %w", err)
	}

	logger.Info("wearable sync database ready", "path", dbPath)

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("wearsync: set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", "pragma", p.desc)
	}

	return nil
}

// --- SQL query constants ---

// Connection queries.
const (
	sqlSaveConnection = `INSERT INTO connections
		(user_id, access_token, refresh_token, token_expiry,
		 vendor_user_id, auto_create, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token   = excluded.access_token,
			refresh_token  = excluded.refresh_token,
			token_expiry   = excluded.token_expiry,
			vendor_user_id = excluded.vendor_user_id,
			auto_create    = excluded.auto_create,
			updated_at     = excluded.updated_at`

	sqlGetConnection = `SELECT user_id, access_token, refresh_token,
		token_expiry, vendor_user_id, auto_create, created_at, updated_at
		FROM connections WHERE user_id = ?`

	sqlUpdateTokens = `UPDATE connections
		SET access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
		WHERE user_id = ?`

	sqlSetAutoCreate = `UPDATE connections
		SET auto_create = ?, updated_at = ? WHERE user_id = ?`

	sqlDeleteConnection = `DELETE FROM connections WHERE user_id = ?`

	sqlConnectedUsers = `SELECT user_id FROM connections ORDER BY user_id`
)

// Workout cache queries.
const (
	sqlWorkoutColumns = `id, user_id, vendor_id, sport_id, start_time,
		end_time, timezone_offset, strain, kilojoule, calories,
		avg_heart_rate, max_heart_rate, linked_session_id,
		created_at, updated_at`

	sqlUpsertWorkout = `INSERT INTO workout_cache
		(user_id, vendor_id, sport_id, start_time, end_time,
		 timezone_offset, strain, kilojoule, calories,
		 avg_heart_rate, max_heart_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, vendor_id) DO UPDATE SET
			sport_id        = excluded.sport_id,
			start_time      = excluded.start_time,
			end_time        = excluded.end_time,
			timezone_offset = excluded.timezone_offset,
			strain          = excluded.strain,
			kilojoule       = excluded.kilojoule,
			calories        = excluded.calories,
			avg_heart_rate  = excluded.avg_heart_rate,
			max_heart_rate  = excluded.max_heart_rate,
			updated_at      = excluded.updated_at`

	sqlWorkoutsInRange = `SELECT ` + sqlWorkoutColumns + `
		FROM workout_cache
		WHERE user_id = ? AND start_time <= ? AND end_time >= ?
		ORDER BY start_time, id`

	sqlUnlinkedWorkouts = `SELECT ` + sqlWorkoutColumns + `
		FROM workout_cache
		WHERE user_id = ? AND sport_id = ? AND linked_session_id IS NULL
		ORDER BY start_time, id`

	sqlWorkoutByID = `SELECT ` + sqlWorkoutColumns + `
		FROM workout_cache WHERE id = ? AND user_id = ?`

	sqlLinkWorkout = `UPDATE workout_cache
		SET linked_session_id = ?, updated_at = ? WHERE id = ?`

	sqlPurgeWorkouts = `DELETE FROM workout_cache WHERE user_id = ?`

	sqlCountWorkouts = `SELECT COUNT(*),
		COUNT(linked_session_id)
		FROM workout_cache WHERE user_id = ?`
)

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *SQLiteStore) prepareAllStatements(ctx context.Context) error {
	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.connStmts.save, sqlSaveConnection, "saveConnection"},
		{&s.connStmts.get, sqlGetConnection, "getConnection"},
		{&s.connStmts.updateTokens, sqlUpdateTokens, "updateTokens"},
		{&s.connStmts.setAutoCreate, sqlSetAutoCreate, "setAutoCreate"},
		{&s.connStmts.del, sqlDeleteConnection, "deleteConnection"},
		{&s.connStmts.listUsers, sqlConnectedUsers, "connectedUsers"},
	}); err != nil {
		return err
	}

	return prepareAll(ctx, s.db, []stmtDef{
		{&s.workoutStmts.upsert, sqlUpsertWorkout, "upsertWorkout"},
		{&s.workoutStmts.inRange, sqlWorkoutsInRange, "workoutsInRange"},
		{&s.workoutStmts.unlinked, sqlUnlinkedWorkouts, "unlinkedWorkouts"},
		{&s.workoutStmts.byID, sqlWorkoutByID, "workoutByID"},
		{&s.workoutStmts.link, sqlLinkWorkout, "linkWorkout"},
		{&s.workoutStmts.purge, sqlPurgeWorkouts, "purgeWorkouts"},
		{&s.workoutStmts.count, sqlCountWorkouts, "countWorkouts"},
	})
}

// --- Connection methods ---

// SaveConnection inserts or replaces a user's vendor connection.
func (s *SQLiteStore) SaveConnection(ctx context.Context, conn *Connection) error {
	s.logger.Debug("saving connection", "user_id", conn.UserID)

	now := time.Now().Unix()

	_, err := s.connStmts.save.ExecContext(ctx,
		conn.UserID, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiry.Unix(), conn.VendorUserID, boolToInt(conn.AutoCreate),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("wearsync: save connection %d: %w", conn.UserID, err)
	}

	return nil
}

// Connection retrieves a user's vendor connection.
// Returns (nil, nil) if the user has never connected.
func (s *SQLiteStore) Connection(ctx context.Context, userID int64) (*Connection, error) {
	s.logger.Debug("getting connection", "user_id", userID)

	conn := &Connection{}

	var expiry, createdAt, updatedAt int64

	var autoCreate int

	err := s.connStmts.get.QueryRowContext(ctx, userID).Scan(
		&conn.UserID, &conn.AccessToken, &conn.RefreshToken,
		&expiry, &conn.VendorUserID, &autoCreate, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil connection means "not connected"
	}

	if err != nil {
		return nil, fmt.Errorf("wearsync: get connection %d: %w", userID, err)
	}

	conn.TokenExpiry = time.Unix(expiry, 0).UTC()
	conn.AutoCreate = autoCreate != 0
	conn.CreatedAt = time.Unix(createdAt, 0).UTC()
	conn.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return conn, nil
}

// UpdateTokens persists a refreshed token pair for a user.
func (s *SQLiteStore) UpdateTokens(
	ctx context.Context, userID int64, accessToken, refreshToken string, expiry time.Time,
) error {
	s.logger.Debug("updating tokens", "user_id", userID, "expiry", expiry)

	result, err := s.connStmts.updateTokens.ExecContext(ctx,
		accessToken, refreshToken, expiry.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("wearsync: update tokens %d: %w", userID, err)
	}

	return requireRowAffected(result, fmt.Sprintf("update tokens %d", userID))
}

// SetAutoCreate toggles the auto-create flag for a connected user.
func (s *SQLiteStore) SetAutoCreate(ctx context.Context, userID int64, enabled bool) error {
	s.logger.Debug("setting auto-create", "user_id", userID, "enabled", enabled)

	result, err := s.connStmts.setAutoCreate.ExecContext(ctx,
		boolToInt(enabled), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("wearsync: set auto-create %d: %w", userID, err)
	}

	return requireRowAffected(result, fmt.Sprintf("set auto-create %d", userID))
}

// DeleteConnection removes a user's vendor connection.
func (s *SQLiteStore) DeleteConnection(ctx context.Context, userID int64) error {
	s.logger.Debug("deleting connection", "user_id", userID)

	_, err := s.connStmts.del.ExecContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("wearsync: delete connection %d: %w", userID, err)
	}

	return nil
}

// ConnectedUserIDs lists every user with a stored connection.
func (s *SQLiteStore) ConnectedUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.connStmts.listUsers.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("wearsync: list connected users: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("wearsync: scan connected user: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wearsync: iterate connected users: %w", err)
	}

	return ids, nil
}

// --- Workout cache methods ---

// UpsertWorkouts inserts or updates a batch of workouts in a single
// transaction, idempotent per (user_id, vendor_id) with last-write-wins on
// conflicting fields. All-or-nothing: any failure rolls back the whole batch.
func (s *SQLiteStore) UpsertWorkouts(ctx context.Context, userID int64, workouts []CachedWorkout) error {
	s.logger.Debug("upserting workouts", "user_id", userID, "count", len(workouts))

	if len(workouts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wearsync: begin upsert tx: %w", err)
	}

	stmt := tx.StmtContext(ctx, s.workoutStmts.upsert)
	now := time.Now().Unix()

	for i := range workouts {
		w := &workouts[i]

		_, execErr := stmt.ExecContext(ctx,
			userID, w.VendorID, w.SportID,
			unixOrZero(w.StartTime), unixOrZero(w.EndTime), w.TimezoneOffset,
			w.Strain, w.Kilojoule, w.Calories,
			w.AvgHeartRate, w.MaxHeartRate, now, now,
		)
		if execErr != nil {
			rollbackErr := tx.Rollback()
			return fmt.Errorf("wearsync: upsert workout %d (vendor %d): %w (rollback: %v)",
				i, w.VendorID, execErr, rollbackErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("wearsync: commit upsert: %w", err)
	}

	return nil
}

// WorkoutsInRange returns all workouts whose stored UTC interval intersects
// [start, end], bounds inclusive, ordered by start time.
func (s *SQLiteStore) WorkoutsInRange(
	ctx context.Context, userID int64, start, end time.Time,
) ([]CachedWorkout, error) {
	s.logger.Debug("querying workouts in range",
		"user_id", userID, "start", start, "end", end)

	rows, err := s.workoutStmts.inRange.QueryContext(ctx, userID, end.Unix(), start.Unix())
	if err != nil {
		return nil, fmt.Errorf("wearsync: workouts in range %d: %w", userID, err)
	}
	defer rows.Close()

	return scanWorkoutRows(rows)
}

// UnlinkedWorkouts returns all cached workouts of the given sport with no
// session link.
func (s *SQLiteStore) UnlinkedWorkouts(ctx context.Context, userID int64, sportID int) ([]CachedWorkout, error) {
	s.logger.Debug("querying unlinked workouts", "user_id", userID, "sport_id", sportID)

	rows, err := s.workoutStmts.unlinked.QueryContext(ctx, userID, sportID)
	if err != nil {
		return nil, fmt.Errorf("wearsync: unlinked workouts %d: %w", userID, err)
	}
	defer rows.Close()

	return scanWorkoutRows(rows)
}

// WorkoutByID retrieves a cache row owned by the given user.
// Returns (nil, nil) when the row is missing or owned by someone else.
func (s *SQLiteStore) WorkoutByID(ctx context.Context, userID, cacheID int64) (*CachedWorkout, error) {
	s.logger.Debug("getting workout", "user_id", userID, "cache_id", cacheID)

	w, err := scanWorkout(s.workoutStmts.byID.QueryRowContext(ctx, cacheID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil workout means "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("wearsync: get workout %d: %w", cacheID, err)
	}

	return w, nil
}

// LinkWorkout records the weak reference from a cache row to a session.
func (s *SQLiteStore) LinkWorkout(ctx context.Context, cacheID, sessionID int64) error {
	s.logger.Debug("linking workout", "cache_id", cacheID, "session_id", sessionID)

	result, err := s.workoutStmts.link.ExecContext(ctx, sessionID, time.Now().Unix(), cacheID)
	if err != nil {
		return fmt.Errorf("wearsync: link workout %d: %w", cacheID, err)
	}

	return requireRowAffected(result, fmt.Sprintf("link workout %d", cacheID))
}

// PurgeWorkouts deletes all cached workouts for a user. Called on disconnect.
func (s *SQLiteStore) PurgeWorkouts(ctx context.Context, userID int64) error {
	s.logger.Info("purging workout cache", "user_id", userID)

	_, err := s.workoutStmts.purge.ExecContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("wearsync: purge workouts %d: %w", userID, err)
	}

	return nil
}

// CountWorkouts returns the total and linked cache row counts for a user.
func (s *SQLiteStore) CountWorkouts(ctx context.Context, userID int64) (int, int, error) {
	var total, linked int

	err := s.workoutStmts.count.QueryRowContext(ctx, userID).Scan(&total, &linked)
	if err != nil {
		return 0, 0, fmt.Errorf("wearsync: count workouts %d: %w", userID, err)
	}

	return total, linked, nil
}

// --- Scanning helpers ---

// scanWorkout scans a full workout row into a CachedWorkout.
func scanWorkout(row interface{ Scan(...any) error }) (*CachedWorkout, error) {
	w := &CachedWorkout{}

	var start, end, createdAt, updatedAt int64

	var linked sql.NullInt64

	err := row.Scan(
		&w.ID, &w.UserID, &w.VendorID, &w.SportID, &start, &end,
		&w.TimezoneOffset, &w.Strain, &w.Kilojoule, &w.Calories,
		&w.AvgHeartRate, &w.MaxHeartRate, &linked, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.StartTime = timeOrZero(start)
	w.EndTime = timeOrZero(end)
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	w.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if linked.Valid {
		w.LinkedSessionID = &linked.Int64
	}

	return w, nil
}

// scanWorkoutRows iterates over sql.Rows and collects workouts.
func scanWorkoutRows(rows *sql.Rows) ([]CachedWorkout, error) {
	var workouts []CachedWorkout

	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("wearsync: scan workout row: %w", err)
		}

		workouts = append(workouts, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("wearsync: iterate workout rows: %w", err)
	}

	return workouts, nil
}

// requireRowAffected converts a zero-row UPDATE into ErrNotFound so callers
// learn the target row does not exist.
func requireRowAffected(result sql.Result, desc string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("wearsync: %s rows affected: %w", desc, err)
	}

	if rows == 0 {
		return fmt.Errorf("wearsync: %s: %w", desc, ErrNotFound)
	}

	return nil
}

// unixOrZero encodes a time as Unix seconds, keeping a missing instant as 0
// so it survives the round trip without becoming the epoch.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

// timeOrZero is the inverse of unixOrZero.
func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}

	return time.Unix(sec, 0).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// Close closes all prepared statements and the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing wearable sync database")

	if err := s.closeStatements(); err != nil {
		s.logger.Error("error closing statements", "error", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("wearsync: close database: %w", err)
	}

	return nil
}

// closeStatements closes all prepared statements, collecting errors.
func (s *SQLiteStore) closeStatements() error {
	stmts := []*sql.Stmt{
		s.connStmts.save, s.connStmts.get, s.connStmts.updateTokens,
		s.connStmts.setAutoCreate, s.connStmts.del, s.connStmts.listUsers,
		s.workoutStmts.upsert, s.workoutStmts.inRange, s.workoutStmts.unlinked,
		s.workoutStmts.byID, s.workoutStmts.link, s.workoutStmts.purge,
		s.workoutStmts.count,
	}

	var errs []string

	for _, stmt := range stmts {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close statements: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
