// Package config holds domain constants and the process configuration read
// from the environment (optionally seeded from a .env file).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// StoreDriver selects the entity store: "postgres" (default) or "memory".
	StoreDriver string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTTTL    time.Duration

	TelegramBotToken string
	// TelegramSyncInterval is how often linked chats are re-read, so a
	// link made with the admin CLI is picked up without a restart.
	TelegramSyncInterval time.Duration
	LocalesDir           string

	LogLevel string
	LogDev   bool

	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64
	RateBurst int
}

// Load reads .env when present and then the process environment.
// A missing .env file is not an error.
func Load() (Config, bool) {
	envLoaded := godotenv.Load() == nil
	cfg := Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:          getEnv("STORE_DRIVER", "postgres"),
		DatabaseDSN:          getEnv("DATABASE_URL", "host=localhost user=user password=password dbname=grievancedb port=5432 sslmode=disable"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		JWTSecret:            getEnv("JWT_SECRET", "change-me"),
		JWTTTL:               getDuration("JWT_TTL", 72*time.Hour),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramSyncInterval: getDuration("TELEGRAM_SYNC_INTERVAL", time.Minute),
		LocalesDir:           getEnv("LOCALES_DIR", "internal/localization/locales"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		LogDev:               os.Getenv("LOG_DEV") == "1",
		RateLimit:            getFloat("RATE_LIMIT_RPS", 20),
		RateBurst:            getInt("RATE_LIMIT_BURST", 40),
	}
	return cfg, envLoaded
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
