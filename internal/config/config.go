package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type DatabaseConfig struct {
	Path               string `mapstructure:"path" validate:"required"`
	BusyTimeoutSeconds int    `mapstructure:"busy_timeout_seconds" validate:"min=1"`
}

// PolicyConfig holds the weekly allowance policy. The weekly limit for a
// given week is min(base + earned extra, max). Reward minutes supplied by
// the exercise provider are clamped to [reward_min_minutes, reward_max_minutes]
// before they are persisted.
type PolicyConfig struct {
	BaseWeeklyLimitMinutes float64 `mapstructure:"base_weekly_limit_minutes" validate:"gt=0"`
	MaxWeeklyLimitMinutes  float64 `mapstructure:"max_weekly_limit_minutes" validate:"gtecsfield=BaseWeeklyLimitMinutes"`
	RewardMinMinutes       float64 `mapstructure:"reward_min_minutes" validate:"gte=0"`
	RewardMaxMinutes       float64 `mapstructure:"reward_max_minutes" validate:"gtecsfield=RewardMinMinutes"`
}

type MonitorConfig struct {
	IntervalSeconds int    `mapstructure:"interval_seconds" validate:"min=1,max=60"`
	RulesFile       string `mapstructure:"rules_file" validate:"omitempty,file"`
	LockScreen      bool   `mapstructure:"lock_screen"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AdminConfig guards the admin commands. PasswordHash is the hex-encoded
// SHA-256 of the admin password; when empty, admin commands refuse to run.
type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gametime")
	}

	v.SetDefault("database.path", "gametime.db")
	v.SetDefault("database.busy_timeout_seconds", 20)
	v.SetDefault("policy.base_weekly_limit_minutes", 120)
	v.SetDefault("policy.max_weekly_limit_minutes", 240)
	v.SetDefault("policy.reward_min_minutes", 0.5)
	v.SetDefault("policy.reward_max_minutes", 5)
	v.SetDefault("monitor.interval_seconds", 15)
	v.SetDefault("monitor.lock_screen", true)
	v.SetDefault("openai.model", "gpt-4o-mini")

	// Bind secrets to environment variables only (not from config file)
	if err := v.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_API_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("openai.model", "OPENAI_MODEL"); err != nil {
		return nil, fmt.Errorf("failed to bind OPENAI_MODEL environment variable: %w", err)
	}
	if err := v.BindEnv("admin.password_hash", "GAMETIME_ADMIN_HASH"); err != nil {
		return nil, fmt.Errorf("failed to bind GAMETIME_ADMIN_HASH environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
