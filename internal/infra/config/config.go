package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the scheduler service.
type AppConfig struct {
	DatabaseURL   string
	MigrationsURL string
	AutoMigrate   bool

	LogLevel    string
	Environment string

	// Cron specs for the two batch triggers.
	CronSpecProcessDue  string
	CronSpecRetryFailed string

	// RetryMaxAttempts is the retry ceiling before a record is marked
	// permanently failed.
	RetryMaxAttempts int

	// Optional telegram ops notifications. Disabled when the token is empty.
	TelegramToken   string
	AdminTelegramID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.MigrationsURL = os.Getenv("MIGRATIONS_URL")
	if cfg.MigrationsURL == "" {
		cfg.MigrationsURL = "file://migrations"
	}

	autoMigrate := strings.ToLower(os.Getenv("AUTO_MIGRATE"))
	cfg.AutoMigrate = autoMigrate == "" || autoMigrate == "true" || autoMigrate == "1"

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecProcessDue = os.Getenv("CRON_SPEC_PROCESS_DUE")
	if cfg.CronSpecProcessDue == "" {
		cfg.CronSpecProcessDue = "0 * * * *" // Default: top of every hour
	}

	cfg.CronSpecRetryFailed = os.Getenv("CRON_SPEC_RETRY_FAILED")
	if cfg.CronSpecRetryFailed == "" {
		cfg.CronSpecRetryFailed = "30 * * * *" // Default: half past every hour
	}

	retryStr := os.Getenv("RETRY_MAX_ATTEMPTS")
	if retryStr == "" {
		cfg.RetryMaxAttempts = 2
	} else {
		cfg.RetryMaxAttempts, err = strconv.Atoi(retryStr)
		if err != nil || cfg.RetryMaxAttempts < 1 {
			return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %q", retryStr)
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if cfg.TelegramToken != "" {
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set but TELEGRAM_TOKEN is")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}
