package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, e := range envs {
			t.Setenv(e, "")
		}
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, "GymAutomationDB", cfg.Sheets.SpreadsheetName)
	assert.Equal(t, 5*time.Minute, cfg.Sheets.CacheTTL)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.ReminderSpec)
	assert.Equal(t, "gpt-4o-mini", cfg.GPT.Model)
	assert.Equal(t, 1500, cfg.Gym.MonthlyFee)
	assert.False(t, cfg.SheetsReady(), "no credentials means offline store")
	assert.False(t, cfg.StripeReady())
}

func TestLoadLegacyTokenAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "legacy")
	t.Setenv("ENABLE_SHEETS", "false")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy", cfg.Telegram.Token)
	assert.False(t, cfg.Sheets.Enabled)
	assert.False(t, cfg.SheetsReady())
	assert.Equal(t, 90*time.Second, cfg.Sheets.CacheTTL)
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "x")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}
