package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"billflow/internal/core"

	"golang.org/x/text/language"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Ledger
	BaseCurrency string

	// Exchange rates
	ExchangeRateAPIKey string
	ExchangeRateAPIURL string
	RateCacheTTL       time.Duration

	// AMQP notification sink
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Telegram notification sink
	TelegramBotToken string
	TelegramAPIURL   string

	// Notifications
	NotificationLanguage string
	NotificationTimeout  time.Duration

	// Scheduler
	DailyInterval  time.Duration
	HourlyInterval time.Duration

	// Google Sheets summary export
	GoogleSpreadsheetID    string
	GoogleSummarySheetName string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/billflow.db"),

		BaseCurrency: strings.ToUpper(getEnv("BASE_CURRENCY", core.DefaultBaseCurrency)),

		ExchangeRateAPIKey: getEnv("EXCHANGE_RATE_API_KEY", ""),
		ExchangeRateAPIURL: getEnv("EXCHANGE_RATE_API_URL", "https://v6.exchangerate-api.com/v6"),
		RateCacheTTL:       getEnvDuration("RATE_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),

		NotificationLanguage: getEnv("NOTIFICATION_LANGUAGE", ""),
		NotificationTimeout:  getEnvDuration("NOTIFICATION_TIMEOUT", 30*time.Second),

		DailyInterval:  getEnvDuration("DAILY_INTERVAL", 24*time.Hour),
		HourlyInterval: getEnvDuration("HOURLY_INTERVAL", time.Hour),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheetName: getEnv("GOOGLE_SUMMARY_SHEET_NAME", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if !core.IsSupportedCurrency(c.BaseCurrency) {
		errors = append(errors, fmt.Sprintf("unsupported base currency '%s': must be one of %v", c.BaseCurrency, core.SupportedCurrencies))
	}

	for _, u := range []struct{ name, raw string }{
		{"exchange rate API URL", c.ExchangeRateAPIURL},
		{"Telegram API URL", c.TelegramAPIURL},
	} {
		name, raw := u.name, u.raw
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be an http(s) URL", name, raw))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.NotificationLanguage != "" {
		if _, err := language.Parse(c.NotificationLanguage); err != nil {
			errors = append(errors, fmt.Sprintf("invalid notification language '%s': %v", c.NotificationLanguage, err))
		}
	}
	if c.NotificationTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid notification timeout %v: must be at least 1 second", c.NotificationTimeout))
	}

	if c.DailyInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid daily interval %v: must be at least 1 minute", c.DailyInterval))
	} else if c.DailyInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid daily interval %v: must be at most 7 days", c.DailyInterval))
	}
	if c.HourlyInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid hourly interval %v: must be at least 1 second", c.HourlyInterval))
	} else if c.HourlyInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid hourly interval %v: must be at most 24 hours", c.HourlyInterval))
	}

	if c.RateCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must not be negative", c.RateCacheTTL))
	}

	if _, err := c.Level(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': %v", c.LogLevel, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Level parses LogLevel; an empty level is info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// RatesEnabled reports whether an exchange rate API key is configured.
func (c *Config) RatesEnabled() bool {
	return c.ExchangeRateAPIKey != ""
}

// SheetsEnabled reports whether yearly summaries are exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
