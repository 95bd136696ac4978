package wearsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service is the engine's operations surface: sync, correlation, auto-link,
// auto-create, and connection lifecycle. All calls are synchronous; the only
// suspension points are vendor calls and storage round-trips.
type Service struct {
	store   Store
	client  VendorClient
	broker  TokenBroker
	journal SessionJournal
	profile ProfileSource
	rescore Rescorer
	logger  *slog.Logger
}

// NewService wires the engine to its store, vendor client, and the journal
// collaborators. rescore may be nil when the host has no scoring pipeline.
func NewService(
	store Store,
	client VendorClient,
	broker TokenBroker,
	journal SessionJournal,
	profile ProfileSource,
	rescore Rescorer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   store,
		client:  client,
		broker:  broker,
		journal: journal,
		profile: profile,
		rescore: rescore,
		logger:  logger,
	}
}

// Connect completes the OAuth callback: exchanges the authorization code,
// resolves the vendor-side user id from the profile, and stores the
// connection. Reconnecting replaces any existing token pair.
func (s *Service) Connect(ctx context.Context, userID int64, code string) (*Connection, error) {
	tok, err := s.broker.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("wearsync: connect user %d: %w", userID, err)
	}

	prof, err := s.client.Profile(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("wearsync: connect user %d: fetching profile: %w", userID, err)
	}

	conn := &Connection{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		VendorUserID: prof.UserID,
	}

	if err := s.store.SaveConnection(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("vendor connection established",
		slog.Int64("user_id", userID),
		slog.Int64("vendor_user_id", prof.UserID),
	)

	return conn, nil
}

// SetAutoCreate toggles the auto-create opt-in for a connected user.
func (s *Service) SetAutoCreate(ctx context.Context, userID int64, enabled bool) error {
	return s.store.SetAutoCreate(ctx, userID, enabled)
}

// Disconnect revokes the vendor grant (best effort), then deletes the
// connection and purges the user's workout cache.
func (s *Service) Disconnect(ctx context.Context, userID int64) error {
	conn, err := s.store.Connection(ctx, userID)
	if err != nil {
		return err
	}

	if conn == nil {
		return fmt.Errorf("wearsync: disconnect user %d: %w", userID, ErrNotFound)
	}

	if err := s.client.Revoke(ctx, conn.AccessToken); err != nil {
		s.logger.Warn("vendor revoke failed, continuing disconnect",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.store.DeleteConnection(ctx, userID); err != nil {
		return err
	}

	if err := s.store.PurgeWorkouts(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("vendor connection removed", slog.Int64("user_id", userID))

	return nil
}

// connection loads a user's connection, mapping "never connected" to
// ErrNotFound for the operations that require one.
func (s *Service) connection(ctx context.Context, userID int64) (*Connection, error) {
	conn, err := s.store.Connection(ctx, userID)
	if err != nil {
		return nil, err
	}

	if conn == nil {
		return nil, fmt.Errorf("wearsync: user %d has no vendor connection: %w", userID, ErrNotFound)
	}

	return conn, nil
}

// fireRescore triggers downstream session re-scoring. Fire-and-forget:
// failures are logged, never propagated.
func (s *Service) fireRescore(ctx context.Context, userID, sessionID int64) {
	if s.rescore == nil {
		return
	}

	if err := s.rescore.Rescore(ctx, userID, sessionID); err != nil {
		s.logger.Warn("session rescore failed",
			slog.Int64("user_id", userID),
			slog.Int64("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// resolveLocation maps a stored IANA timezone name to a Location, degrading
// to UTC when the name is empty or unparseable.
func (s *Service) resolveLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("unparseable timezone, using UTC", slog.String("timezone", tz))
		return time.UTC
	}

	return loc
}
