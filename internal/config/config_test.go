package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/taprealm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Second, cfg.SettingsReloadInterval)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.False(t, cfg.DevMode)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/taprealm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TAP_TRACKER_IDLE", "90s")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.TapTrackerIdle)
}

func TestParseMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DEV_MODE", "false")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestParseAdminBot(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/taprealm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_BOT_ENABLED", "true")
	t.Setenv("ADMIN_TELEGRAM_IDS", "")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_TELEGRAM_IDS")

	t.Setenv("ADMIN_TELEGRAM_IDS", "111,222")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []int64{111, 222}, cfg.AdminTelegramIDs)
}
