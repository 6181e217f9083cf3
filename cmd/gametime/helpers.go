package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gametime/internal/clock"
	"gametime/internal/config"
	"gametime/internal/database"
	"gametime/internal/events"
	"gametime/internal/exercise"
	"gametime/internal/exercise/openai"
	"gametime/internal/limiter"
	"gametime/internal/rewardledger"
	"gametime/internal/session"
	"gametime/internal/settings"
	"gametime/internal/status"
	"gametime/internal/timeledger"
)

const openaiRetryAttempts = 3

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.Load() > %w", err)
	}
	return cfg, nil
}

// app wires the store, ledgers and services for one command run.
type app struct {
	cfg      *config.Config
	db       *database.DB
	clock    clock.Clock
	recorder *events.Recorder
	times    *timeledger.Ledger
	rewards  *rewardledger.Ledger
	settings *settings.Store
	limiter  *limiter.Limiter
	tracker  *session.Tracker
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}

	clk := clock.SystemClock{}
	recorder := events.NewRecorder(db, clk, slog.Default())
	times := timeledger.New(db, clk)
	rewards := rewardledger.New(db, clk)
	store := settings.NewStore(db, clk)

	policy := status.Policy{
		BaseWeeklyLimitMinutes: cfg.Policy.BaseWeeklyLimitMinutes,
		MaxWeeklyLimitMinutes:  cfg.Policy.MaxWeeklyLimitMinutes,
	}
	lim := limiter.New(policy, times, rewards, store, db, clk, recorder, slog.Default())

	if _, err := lim.WeeklyResetCheck(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("limiter.WeeklyResetCheck() > %w", err)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		clock:    clk,
		recorder: recorder,
		times:    times,
		rewards:  rewards,
		settings: store,
		limiter:  lim,
		tracker:  session.NewTracker(times, store, clk, recorder),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// exerciseService builds the provider-backed service. The returned
// closer shuts down the HTTP client.
func (a *app) exerciseService() (*exercise.Service, func() error, error) {
	if a.cfg.OpenAI.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set; exercises need the question provider")
	}

	client := openai.NewClient(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model, openaiRetryAttempts)
	service := exercise.NewService(client, a.rewards, exercise.Config{
		RewardMinMinutes: a.cfg.Policy.RewardMinMinutes,
		RewardMaxMinutes: a.cfg.Policy.RewardMaxMinutes,
	}, slog.Default())
	return service, client.Close, nil
}

func formatMinutes(minutes float64) string {
	d := time.Duration(minutes * float64(time.Minute))
	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh%02dm", hours, mins)
}
