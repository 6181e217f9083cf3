package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gametime/internal/inspector"
	"gametime/internal/monitor"
	"gametime/internal/session"
)

func newMonitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch for restricted games outside of sessions",
	}
	cmd.AddCommand(newMonitorRunCommand())
	return cmd
}

func newMonitorRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			rules := monitor.DefaultRules()
			if app.cfg.Monitor.RulesFile != "" {
				rules, err = monitor.LoadRules(app.cfg.Monitor.RulesFile)
				if err != nil {
					return fmt.Errorf("monitor.LoadRules() > %w", err)
				}
			}

			// Sessions run in their own process; the settings-store
			// marker is the only session signal visible from here.
			m := monitor.New(
				inspector.NewSystem(),
				session.NewPresence(app.settings, app.clock, slog.Default()),
				rules,
				monitor.Config{
					Interval:   time.Duration(app.cfg.Monitor.IntervalSeconds) * time.Second,
					LockScreen: app.cfg.Monitor.LockScreen,
				},
				app.recorder,
				slog.Default(),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m.Start(ctx)
			<-ctx.Done()
			m.Stop()
			return nil
		},
	}
}
