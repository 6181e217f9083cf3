package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this week's game time allowance",
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

			fmt.Printf("Week of %s\n", weekly.WeekStart.Format("2006-01-02"))
			fmt.Printf("  Limit:     %s (base %s + extra %s)\n",
				formatMinutes(weekly.LimitMinutes),
				formatMinutes(app.cfg.Policy.BaseWeeklyLimitMinutes),
				formatMinutes(weekly.ExtraMinutes))
			fmt.Printf("  Used:      %s\n", formatMinutes(weekly.UsedMinutes))

			if weekly.RemainingMinutes > 0 {
				color.Green("  Remaining: %s", formatMinutes(weekly.RemainingMinutes))
			} else {
				color.Red("  Remaining: none")
			}
			return nil
		},
	}
}
