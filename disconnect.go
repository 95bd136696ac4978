package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
)

func newDisconnectCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Unlink a WHOOP account and purge its cached workouts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.svc.Disconnect(cmd.Context(), userID); err != nil {
				if errors.Is(err, wearsync.ErrNotFound) {
					return fmt.Errorf("user %d has no connected device", userID)
				}

				return err
			}

			statusf("Disconnected user %d.\n", userID)

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
