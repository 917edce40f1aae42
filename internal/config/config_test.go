package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "APP_URL", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "SLACK_BOT_TOKEN",
	"SLACK_CHANNEL", "SLACK_API_URL", "HOURLY_RATE", "PLATFORM_FEE_RATE", "SESSION_TTL",
	"COOKIE_SECURE", "NOTIFY_MODE", "NOTIFY_TIMEOUT", "REDIS_ADDR", "REDIS_HOST", "REDIS_PORT",
	"RUN_LOCAL", "DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "MAIL_REPLY_TO",
	"DASHBOARD_USER", "DASHBOARD_PASSWORD_HASH", "LOG_LEVEL", "LOG_FORMAT",
}

func setRequired(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("SLACK_SIGNING_SECRET", "signing-secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.AppURL)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, NotifyInline, cfg.NotifyMode)
	assert.Equal(t, 49.50, cfg.HourlyRate)
	assert.Equal(t, 15.0, cfg.PlatformFeeRate)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_URL", "https://brandwacht.example/")
	t.Setenv("HOURLY_RATE", "52.5")
	t.Setenv("PLATFORM_FEE_RATE", "12")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://brandwacht.example", cfg.AppURL)
	assert.True(t, cfg.CookieSecure, "https app url implies secure cookies")
	assert.Equal(t, 52.5, cfg.HourlyRate)
	assert.Equal(t, 12.0, cfg.PlatformFeeRate)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

func TestFromEnv_DatabaseURLFromParts(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_USER", "bw")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "brandwacht")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://bw:pw@db:5433/brandwacht", cfg.DatabaseURL)
}

func TestFromEnv_ReportsAllProblems(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("SLACK_SIGNING_SECRET", "")
	t.Setenv("HOURLY_RATE", "abc")
	t.Setenv("NOTIFY_MODE", "carrier-pigeon")

	_, err := FromEnv()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "SESSION_SECRET is required")
	assert.Contains(t, msg, "SLACK_SIGNING_SECRET is required")
	assert.Contains(t, msg, "HOURLY_RATE")
	assert.Contains(t, msg, "NOTIFY_MODE")
}
