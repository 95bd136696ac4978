// Command rivaflow-wearsync is the CLI surface of the wearable-device sync
// and correlation engine: connect/disconnect a vendor account, sync workout
// telemetry into the local cache, rank candidate matches for a training
// session, apply a match, and auto-create sessions for opted-in users.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/config"
	"github.com/RubyWolff27/rivaflow-wearsync/internal/journal"
	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
	"github.com/RubyWolff27/rivaflow-wearsync/internal/whoop"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rivaflow-wearsync",
		Short:   "Wearable device sync for the training journal",
		Long:    "Sync, correlate, and apply wearable workout telemetry against journal training sessions.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newDisconnectCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMatchesCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newAutocreateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// buildLogger creates an slog.Logger configured by the config file log
// level; --verbose and --quiet override it because CLI flags always win.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app bundles the opened engine and its stores for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *wearsync.SQLiteStore
	journal *journal.Journal
	auth    *whoop.Authenticator
	svc     *wearsync.Service
}

// openApp loads configuration, opens both database layers, and wires the
// engine. Every subcommand that touches the engine goes through here.
func openApp() (*app, error) {
	cfg, err := config.LoadOrDefault(flagConfigPath)
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg)

	store, err := wearsync.NewStore(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, err
	}

	jnl, err := journal.Open(cfg.Storage.DBPath, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := whoop.NewClient(cfg.Vendor.BaseURL, logger)
	broker := whoop.NewAuthenticator(whoop.AuthConfig{
		ClientID:     cfg.Vendor.ClientID,
		ClientSecret: cfg.Vendor.ClientSecret,
		RedirectURL:  cfg.Vendor.RedirectURL,
		AuthURL:      cfg.Vendor.AuthURL,
		TokenURL:     cfg.Vendor.TokenURL,
	}, logger)

	svc := wearsync.NewService(store, client, broker, jnl, jnl, nil, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		journal: jnl,
		auth:    broker,
		svc:     svc,
	}, nil
}

// close releases both database handles. Best effort, errors logged.
func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("closing journal", slog.String("error", err.Error()))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

// userTimezone resolves the stored timezone for correlation calls; empty
// means UTC. Resolved once per call and threaded through, never ambient.
func (a *app) userTimezone(cmd *cobra.Command, userID int64) string {
	prof, err := a.journal.Profile(cmd.Context(), userID)
	if err != nil || prof == nil {
		return ""
	}

	return prof.Timezone
}

// requireVendorConfig validates the OAuth app fields for commands that call
// out to the vendor.
func (a *app) requireVendorConfig() error {
	return a.cfg.ValidateForVendorCalls()
}

// unavailableMessage maps a vendor failure to the user-visible phrasing;
// other errors pass through unchanged.
func unavailableMessage(err error) error {
	if wearsyncIsUnavailable(err) {
		return fmt.Errorf("integration temporarily unavailable: %w", err)
	}

	return err
}
