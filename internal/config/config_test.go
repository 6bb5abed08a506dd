package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGIN", "DEFAULT_LANGUAGE", "DB_URL",
		"SESSION_TIMEOUT_MS", "SESSION_SWEEP_INTERVAL_MS", "HISTORY_LIMIT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, "es", cfg.DefaultLanguage)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, 100, cfg.HistoryLimit)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TIMEOUT_MS", "60000")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("DB_URL", "postgres://localhost/casino")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "postgres://localhost/casino", cfg.DatabaseURL)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_MS", "not-a-number")
	t.Setenv("HISTORY_LIMIT", "-5")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 100, cfg.HistoryLimit)
}
