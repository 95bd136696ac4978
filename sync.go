package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// syncAllConcurrency bounds the per-user fan-out of sync --all. Each user
// holds at most one vendor page in flight, so a small pool is plenty.
const syncAllConcurrency = 4

func newSyncCmd() *cobra.Command {
	var (
		userID   int64
		daysBack int
		allUsers bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull recent workouts into the local cache",
		Long: `Pull recent workouts from WHOOP into the local cache.

Syncs one user with --user, or every connected user with --all. Each
user's window is the last --days days. A sync is all-or-nothing per
user: on any failure the cache keeps its previous contents.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if allUsers == (userID != 0) {
				return errors.New("exactly one of --user or --all is required")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireVendorConfig(); err != nil {
				return err
			}

			if !allUsers {
				count, err := a.svc.Sync(cmd.Context(), userID, daysBack)
				if err != nil {
					return unavailableMessage(err)
				}

				statusf("Synced %d workouts for user %d.\n", count, userID)

				return nil
			}

			return syncAll(cmd, a, daysBack)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	cmd.Flags().IntVar(&daysBack, "days", 7, "how many days back to sync")
	cmd.Flags().BoolVar(&allUsers, "all", false, "sync every connected user")

	return cmd
}

// syncAll fans sync out over every connected user with a bounded pool.
// One user's failure doesn't stop the others; the command reports the
// first failure after all users finish.
func syncAll(cmd *cobra.Command, a *app, daysBack int) error {
	userIDs, err := a.store.ConnectedUserIDs(cmd.Context())
	if err != nil {
		return err
	}

	if len(userIDs) == 0 {
		statusf("No connected users.\n")
		return nil
	}

	var group errgroup.Group

	group.SetLimit(syncAllConcurrency)

	results := make([]syncResult, len(userIDs))

	for i, id := range userIDs {
		group.Go(func() error {
			count, err := a.svc.Sync(cmd.Context(), id, daysBack)
			results[i] = syncResult{userID: id, count: count, err: err}

			return nil
		})
	}

	// Goroutines never return errors, so Wait only propagates ctx issues.
	_ = group.Wait()

	var firstErr error

	for _, res := range results {
		if res.err != nil {
			a.logger.Error("sync failed",
				slog.Int64("user_id", res.userID),
				slog.String("error", res.err.Error()))

			if firstErr == nil {
				firstErr = fmt.Errorf("user %d: %w", res.userID, res.err)
			}

			continue
		}

		statusf("Synced %d workouts for user %d.\n", res.count, res.userID)
	}

	if firstErr != nil {
		return unavailableMessage(firstErr)
	}

	return nil
}

type syncResult struct {
	userID int64
	count  int
	err    error
}
