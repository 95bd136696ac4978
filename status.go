package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connection and cache state for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			conn, err := a.store.Connection(cmd.Context(), userID)
			if err != nil {
				return err
			}

			if conn == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "User %d: not connected\n", userID)
				return nil
			}

			total, linked, err := a.store.CountWorkouts(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tz := a.userTimezone(cmd, userID)
			if tz == "" {
				tz = "(unset, using UTC)"
			}

			rows := [][]string{
				{"Vendor user", strconv.FormatInt(conn.VendorUserID, 10)},
				{"Token expiry", conn.TokenExpiry.UTC().Format(time.RFC3339)},
				{"Auto-create", onOff(conn.AutoCreate)},
				{"Timezone", tz},
				{"Cached workouts", strconv.Itoa(total)},
				{"Linked workouts", strconv.Itoa(linked)},
				{"Connected since", conn.CreatedAt.UTC().Format(time.RFC3339)},
			}

			printTable(cmd.OutOrStdout(), []string{"FIELD", "VALUE"}, rows)

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
