package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	ActivityBackendPostgres = "postgres"
	ActivityBackendRedis    = "redis"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	DatabaseURL       string
	LogLevel          string
	Environment       string
	Location          *time.Location // the single calendar all day-keys and alerts use
	ActivityBackend   string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CronSpecDispatch  string // how often due notifications are delivered
	DispatchBatchSize int
	DefaultStreakHour int
	MetricsAddr       string // empty disables the /metrics listener
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.Location = time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		cfg.Location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
	}

	cfg.ActivityBackend = strings.ToLower(os.Getenv("ACTIVITY_BACKEND"))
	switch cfg.ActivityBackend {
	case "":
		cfg.ActivityBackend = ActivityBackendPostgres
	case ActivityBackendPostgres, ActivityBackendRedis:
	default:
		return nil, fmt.Errorf("invalid ACTIVITY_BACKEND %q: expected %s or %s", cfg.ActivityBackend, ActivityBackendPostgres, ActivityBackendRedis)
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		cfg.RedisDB, err = strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	cfg.CronSpecDispatch = os.Getenv("CRON_SPEC_DISPATCH")
	if cfg.CronSpecDispatch == "" {
		cfg.CronSpecDispatch = "* * * * *" // Default: every minute
	}

	cfg.DispatchBatchSize = 500
	if sizeStr := os.Getenv("DISPATCH_BATCH_SIZE"); sizeStr != "" {
		cfg.DispatchBatchSize, err = strconv.Atoi(sizeStr)
		if err != nil || cfg.DispatchBatchSize <= 0 {
			return nil, fmt.Errorf("invalid DISPATCH_BATCH_SIZE %q", sizeStr)
		}
	}

	cfg.DefaultStreakHour = 21
	if hourStr := os.Getenv("DEFAULT_STREAK_HOUR"); hourStr != "" {
		cfg.DefaultStreakHour, err = strconv.Atoi(hourStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_STREAK_HOUR: %w", err)
		}
		if cfg.DefaultStreakHour < 0 || cfg.DefaultStreakHour > 23 {
			return nil, fmt.Errorf("invalid DEFAULT_STREAK_HOUR %d: must be within 0-23", cfg.DefaultStreakHour)
		}
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}
