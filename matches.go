package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/wearsync"
)

func newMatchesCmd() *cobra.Command {
	var (
		userID    int64
		sessionID int64
		date      string
		start     string
		duration  int
	)

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Find cached workouts overlapping a training session",
		Long: `Find cached workouts overlapping a training session.

The session is described by its local date, start time, and duration in
the user's stored timezone. If the cache window is empty a single
on-demand sync runs before re-querying. Candidates below 30% overlap
are omitted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			desc := wearsync.SessionDescriptor{
				SessionID:       sessionID,
				LocalDate:       date,
				LocalStart:      start,
				DurationMinutes: duration,
			}

			tz := a.userTimezone(cmd, userID)

			candidates, err := a.svc.FindMatches(cmd.Context(), userID, desc, tz)
			if err != nil {
				if errors.Is(err, wearsync.ErrInvalidTime) {
					return fmt.Errorf("invalid session time %q %q (want YYYY-MM-DD and HH:MM)", date, start)
				}

				return err
			}

			if len(candidates) == 0 {
				statusf("No matching workouts.\n")
				return nil
			}

			printMatches(cmd, candidates)

			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "journal user id")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "session id, when matching an existing session")
	cmd.Flags().StringVar(&date, "date", "", "session local date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "session local start time (HH:MM)")
	cmd.Flags().IntVar(&duration, "duration", 0, "session duration in minutes (0 assumes an hour)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func printMatches(cmd *cobra.Command, candidates []wearsync.MatchCandidate) {
	headers := []string{"CACHE ID", "START (UTC)", "DURATION", "STRAIN", "CAL", "OVERLAP"}

	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		w := c.Workout
		rows = append(rows, []string{
			strconv.FormatInt(w.ID, 10),
			w.StartTime.Format("2006-01-02 15:04"),
			w.Duration().Round(time.Minute).String(),
			fmt.Sprintf("%.1f", w.Strain),
			strconv.Itoa(w.Calories),
			fmt.Sprintf("%.0f%%", c.OverlapPct),
		})
	}

	printTable(cmd.OutOrStdout(), headers, rows)
}
