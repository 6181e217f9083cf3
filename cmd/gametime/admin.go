package main

import (
	"bufio"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gametime/internal/events"
)

// eventKind is a --kind flag value restricted to the known audit kinds.
type eventKind string

func (k *eventKind) Set(val string) error {
	for _, kind := range allEventKinds {
		if val == kind {
			*k = eventKind(val)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", val)
}

func (k *eventKind) String() string {
	return string(*k)
}

func (k *eventKind) Type() string {
	return "kind"
}

var (
	_             pflag.Value = (*eventKind)(nil)
	allEventKinds             = []string{
		events.KindSessionStarted,
		events.KindSessionEnded,
		events.KindRestrictionFound,
		events.KindProcessTerminated,
		events.KindScreenLocked,
		events.KindMonitorStarted,
		events.KindMonitorStopped,
		events.KindExtraTimeGranted,
		events.KindUsedTimeAdjusted,
		events.KindError,
	}
)

func newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Password-protected maintenance commands",
	}
	cmd.AddCommand(newAdminExtraTimeCommand())
	cmd.AddCommand(newAdminAdjustUsedCommand())
	cmd.AddCommand(newAdminDeleteSessionCommand())
	cmd.AddCommand(newAdminOptimizeCommand())
	cmd.AddCommand(newAdminEventsCommand())
	return cmd
}

// checkAdminPassword prompts for the admin password and compares its
// SHA-256 against the configured hash. No hash configured means admin
// commands are disabled, not open.
func checkAdminPassword(configuredHash string) error {
	if configuredHash == "" {
		return fmt.Errorf("no admin password hash configured; set GAMETIME_ADMIN_HASH")
	}

	fmt.Print("Admin password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password > %w", err)
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(line)))
	entered := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(entered), []byte(strings.ToLower(configuredHash))) != 1 {
		return fmt.Errorf("wrong admin password")
	}
	return nil
}

func newAdminExtraTimeCommand() *cobra.Command {
	var minutes float64

	cmd := &cobra.Command{
		Use:   "extra-time",
		Short: "Grant extra minutes for this week",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := checkAdminPassword(app.cfg.Admin.PasswordHash); err != nil {
				return err
			}

			total, err := app.limiter.AddWeeklyExtraTime(cmd.Context(), minutes)
			if err != nil {
				return fmt.Errorf("limiter.AddWeeklyExtraTime() > %w", err)
			}

			color.Green("Extra time for this week is now %s.", formatMinutes(total))
			return nil
		},
	}

	cmd.Flags().Float64Var(&minutes, "minutes", 0, "Minutes to add; negative values take time away")
	_ = cmd.MarkFlagRequired("minutes")

	return cmd
}

func newAdminAdjustUsedCommand() *cobra.Command {
	var minutes float64
	var note string

	cmd := &cobra.Command{
		Use:   "adjust-used",
		Short: "Correct this week's used minutes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := checkAdminPassword(app.cfg.Admin.PasswordHash); err != nil {
				return err
			}

			if err := app.limiter.AdjustUsedTime(cmd.Context(), minutes, note); err != nil {
				return fmt.Errorf("limiter.AdjustUsedTime() > %w", err)
			}

			color.Green("Recorded an adjustment of %s.", formatMinutes(minutes))
			return nil
		},
	}

	cmd.Flags().Float64Var(&minutes, "minutes", 0, "Minutes to add to used time; negative values give time back")
	cmd.Flags().StringVar(&note, "note", "manual adjustment", "Reason for the adjustment")
	_ = cmd.MarkFlagRequired("minutes")

	return cmd
}

func newAdminDeleteSessionCommand() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "delete-session",
		Short: "Delete a recorded session by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := checkAdminPassword(app.cfg.Admin.PasswordHash); err != nil {
				return err
			}

			if err := app.times.DeleteSession(cmd.Context(), id); err != nil {
				return fmt.Errorf("times.DeleteSession() > %w", err)
			}

			color.Green("Deleted session #%d.", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Session id, as shown by session list")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAdminOptimizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Purge stale caches and compact the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := checkAdminPassword(app.cfg.Admin.PasswordHash); err != nil {
				return err
			}

			if err := app.limiter.Optimize(cmd.Context()); err != nil {
				return fmt.Errorf("limiter.Optimize() > %w", err)
			}

			color.Green("Store optimized.")
			return nil
		},
	}
}

func newAdminEventsCommand() *cobra.Command {
	var limit int
	var kind eventKind

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the most recent audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := checkAdminPassword(app.cfg.Admin.PasswordHash); err != nil {
				return err
			}

			events, err := app.recorder.Recent(cmd.Context(), kind.String(), limit)
			if err != nil {
				return fmt.Errorf("recorder.Recent() > %w", err)
			}
			if len(events) == 0 {
				fmt.Println("No events recorded.")
				return nil
			}

			for _, e := range events {
				line := fmt.Sprintf("%s  %-22s", e.OccurredAt, e.Kind)
				if e.Detail != "" {
					line += "  " + e.Detail
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	cmd.Flags().Var(&kind, "kind", fmt.Sprintf("Only show one event kind (%s)", strings.Join(allEventKinds, ", ")))

	return cmd
}
