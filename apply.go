package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
)

func newApplyCmd() *cobra.Command {
	var (
		userID    int64
		sessionID int64
		cacheID   int64
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Copy a cached workout's physiology onto a session and link them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.Apply(cmd.Context(), userID, sessionID, cacheID); err != nil {
				if errors.Is(err, wearsync.ErrNotFound) {
					return fmt.Errorf("no such session or cached workout for user %d", userID)
				}

				return err
			}

			statusf("Applied workout %d to session %d.\n", cacheID, sessionID)

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "journal session id")
	cmd.Flags().Int64Var(&cacheID, "cache", 0, "cached workout id (see matches)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("cache")

	return cmd
}
