package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var (
		userID int64
		code   string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link a WHOOP account",
		Long: `Link a WHOOP account to a journal user.

Run without --code to print the authorization URL. After approving access
in the browser, run again with --code set to the authorization code from
the redirect.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireVendorConfig(); err != nil {
				return err
			}

			if code == "" {
				state := uuid.NewString()
				fmt.Fprintln(cmd.OutOrStdout(), a.auth.AuthorizationURL(state))
				statusf("Approve access in the browser, then rerun with --code.\n")

				return nil
			}

			conn, err := a.svc.Connect(cmd.Context(), userID, code)
			if err != nil {
				return unavailableMessage(err)
			}

			statusf("Connected user %d (vendor user %d).\n", conn.UserID, conn.VendorUserID)

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	cmd.Flags().StringVar(&code, "code", "", "authorization code from the OAuth redirect")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
