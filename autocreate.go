package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
)

func newAutocreateCmd() *cobra.Command {
	var (
		userID  int64
		enable  bool
		disable bool
	)

	cmd := &cobra.Command{
		Use:   "autocreate",
		Short: "Create sessions from unlinked jiu-jitsu workouts",
		Long: `Create journal sessions from unlinked jiu-jitsu workouts.

With --enable or --disable, toggles the per-user setting and exits.
Otherwise runs one auto-create pass: every unlinked cached jiu-jitsu
workout becomes a needs-review session stamped with the user's default
gym and training type. Workouts that fail are skipped, not fatal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if enable && disable {
				return errors.New("--enable and --disable are mutually exclusive")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if enable || disable {
				if err := a.svc.SetAutoCreate(cmd.Context(), userID, enable); err != nil {
					if errors.Is(err, wearsync.ErrNotFound) {
						return fmt.Errorf("user %d has no connected device", userID)
					}

					return err
				}

				statusf("Auto-create %s for user %d.\n", onOff(enable), userID)

				return nil
			}

			created, err := a.svc.AutoCreate(cmd.Context(), userID)
			if err != nil {
				if errors.Is(err, wearsync.ErrNotFound) {
					return fmt.Errorf("user %d has no connected device", userID)
				}

				return err
			}

			if len(created) == 0 {
				statusf("No sessions created.\n")
				return nil
			}

			for _, sessionID := range created {
				fmt.Fprintln(cmd.OutOrStdout(), sessionID)
			}

			statusf("Created %d sessions.\n", len(created))

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	cmd.Flags().BoolVar(&enable, "enable", false, "turn auto-create on for the user")
	cmd.Flags().BoolVar(&disable, "disable", false, "turn auto-create off for the user")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}

	return "disabled"
}
