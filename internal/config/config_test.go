package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("TELEGRAM_SYNC_INTERVAL", "")

	cfg, _ := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, time.Minute, cfg.TelegramSyncInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("LOG_DEV", "1")
	t.Setenv("TELEGRAM_SYNC_INTERVAL", "15s")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, _ := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, 15*time.Second, cfg.TelegramSyncInterval)
	assert.Equal(t, 40, cfg.RateBurst, "invalid values fall back to defaults")
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, 7, DefaultTimeBoundaryDays)
	assert.Equal(t, 1, MinExtensionDays)
	assert.Equal(t, 365, MaxExtensionDays)
	assert.Equal(t, 5, MinClosingRemarksLength)
}
