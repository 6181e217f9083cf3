package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "gametime.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Database.BusyTimeoutSeconds)
	assert.Equal(t, 120.0, cfg.Policy.BaseWeeklyLimitMinutes)
	assert.Equal(t, 240.0, cfg.Policy.MaxWeeklyLimitMinutes)
	assert.Equal(t, 0.5, cfg.Policy.RewardMinMinutes)
	assert.Equal(t, 5.0, cfg.Policy.RewardMaxMinutes)
	assert.Equal(t, 15, cfg.Monitor.IntervalSeconds)
	assert.True(t, cfg.Monitor.LockScreen)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /tmp/other.db
policy:
  base_weekly_limit_minutes: 90
  max_weekly_limit_minutes: 180
monitor:
  interval_seconds: 5
  lock_screen: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, 90.0, cfg.Policy.BaseWeeklyLimitMinutes)
	assert.Equal(t, 180.0, cfg.Policy.MaxWeeklyLimitMinutes)
	assert.Equal(t, 5, cfg.Monitor.IntervalSeconds)
	assert.False(t, cfg.Monitor.LockScreen)
}

func TestLoad_EnvironmentSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GAMETIME_ADMIN_HASH", "abc123")

	cfg, err := Load(writeConfigFile(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "abc123", cfg.Admin.PasswordHash)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "max below base",
			content: `
policy:
  base_weekly_limit_minutes: 240
  max_weekly_limit_minutes: 120
`,
		},
		{
			name: "zero base limit",
			content: `
policy:
  base_weekly_limit_minutes: 0
`,
		},
		{
			name: "interval out of range",
			content: `
monitor:
  interval_seconds: 600
`,
		},
		{
			name: "rules file does not exist",
			content: `
monitor:
  rules_file: /nonexistent/rules.yaml
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RulesFileUnderRegularFile(t *testing.T) {
	// A regular file as a path component makes os.Stat fail with
	// ENOTDIR, which is not an IsNotExist error.
	parent := writeConfigFile(t, "not a directory")
	path := writeConfigFile(t, `
monitor:
  rules_file: `+filepath.Join(parent, "rules.yaml")+`
`)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rules_file")
}
