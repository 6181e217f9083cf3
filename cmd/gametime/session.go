package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gametime/internal/timeledger"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run and review game sessions",
	}
	cmd.AddCommand(newSessionRunCommand())
	cmd.AddCommand(newSessionListCommand())
	return cmd
}

func newSessionRunCommand() *cobra.Command {
	var plannedMinutes float64
	var label string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a game session and record it when it ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			weekly, err := app.limiter.WeeklyStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("limiter.WeeklyStatus() > %w", err)
			}
			if weekly.RemainingMinutes <= 0 {
				color.Red("No game time remaining this week.")
				return nil
			}
			if plannedMinutes > weekly.RemainingMinutes {
				color.Yellow("Only %s remaining this week; planning %s.",
					formatMinutes(weekly.RemainingMinutes), formatMinutes(plannedMinutes))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.tracker.Start(ctx, plannedMinutes, label); err != nil {
				return fmt.Errorf("tracker.Start() > %w", err)
			}
			color.Green("Session started. Press Enter to end it.")

			// The session ends on Enter, on the planned timer, or on a
			// signal. All three paths go through tracker.End exactly once.
			enter := make(chan struct{})
			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Scan()
				close(enter)
			}()

			var timer <-chan time.Time
			if plannedMinutes > 0 {
				timer = time.After(time.Duration(plannedMinutes * float64(time.Minute)))
			}

			select {
			case <-enter:
			case <-timer:
				color.Yellow("Planned time is up.")
			case <-ctx.Done():
				fmt.Println()
			}

			// The signal context may already be cancelled; the ledger write
			// must still happen.
			result, err := app.tracker.End(cmd.Context(), "")
			if err != nil {
				return fmt.Errorf("tracker.End() > %w", err)
			}
			if !result.Ended {
				return nil
			}

			fmt.Printf("Recorded %s of game time.\n", formatMinutes(result.ActualMinutes))

			weekly, err = app.limiter.WeeklyStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("limiter.WeeklyStatus() > %w", err)
			}
			fmt.Printf("Remaining this week: %s\n", formatMinutes(weekly.RemainingMinutes))
			return nil
		},
	}

	cmd.Flags().Float64Var(&plannedMinutes, "minutes", 0, "Planned session length; the session ends when it elapses")
	cmd.Flags().StringVar(&label, "label", "", "Label for the session, e.g. the game's name")

	return cmd
}

func newSessionListCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, this week by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var weekStart *time.Time
			if !all {
				start := timeledger.WeekStart(app.clock.Now())
				weekStart = &start
			}

			sessions, err := app.times.Sessions(cmd.Context(), weekStart)
			if err != nil {
				return fmt.Errorf("times.Sessions() > %w", err)
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions recorded.")
				return nil
			}

			for _, s := range sessions {
				minutes := 0.0
				if s.DurationMinutes != nil {
					minutes = *s.DurationMinutes
				}
				line := fmt.Sprintf("#%d  %s  %s", s.ID, s.StartTime.Format("2006-01-02 15:04"), formatMinutes(minutes))
				if s.Label != "" {
					line += "  " + s.Label
				}
				if s.Note != "" {
					line += "  (" + s.Note + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List all sessions instead of this week's")

	return cmd
}
