package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spendwatch/internal/core"
)

const defaultLogRecipient = "owner@localhost"

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional; empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Watchdog
	SpendingLimit    core.Money
	spendingLimitRaw string
	WatchdogInterval time.Duration
	WatchdogTimezone string
	OncePerPeriod    bool

	// Notifications
	NotifyProvider string
	NotifyFrom     string
	NotifyTo       []string

	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string

	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendwatch.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendwatch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "spending_checks"),

		spendingLimitRaw: getEnv("SPENDING_LIMIT", "1000"),
		WatchdogInterval: getEnvDuration("WATCHDOG_INTERVAL", time.Hour),
		WatchdogTimezone: getEnv("WATCHDOG_TIMEZONE", "Local"),
		OncePerPeriod:    getEnvBool("WATCHDOG_ONCE_PER_PERIOD", false),

		NotifyProvider: getEnv("NOTIFY_PROVIDER", "log"),
		NotifyFrom:     getEnv("NOTIFY_FROM", ""),
		NotifyTo:       splitList(getEnv("NOTIFY_TO", "")),

		MailgunDomain:  getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:  getEnv("MAILGUN_API_KEY", ""),
		MailgunAPIBase: getEnv("MAILGUN_API_BASE", ""),

		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Parse errors surface in Validate.
	if limit, err := core.ParseMoney(cfg.spendingLimitRaw); err == nil {
		cfg.SpendingLimit = limit
	}
	if cfg.NotifyProvider == "log" && len(cfg.NotifyTo) == 0 {
		cfg.NotifyTo = []string{defaultLogRecipient}
	}

	return cfg
}

// Location resolves WatchdogTimezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.WatchdogTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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

	// Validate watchdog
	if c.spendingLimitRaw != "" {
		if _, err := core.ParseMoney(c.spendingLimitRaw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid spending limit '%s': %v", c.spendingLimitRaw, err))
		}
	}
	if c.SpendingLimit.Millis < 0 {
		errors = append(errors, "invalid spending limit: must not be negative")
	}
	if c.WatchdogInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid watchdog interval %v: must be at least 1 minute", c.WatchdogInterval))
	} else if c.WatchdogInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid watchdog interval %v: must be at most 24 hours", c.WatchdogInterval))
	}
	if _, err := loadLocation(c.WatchdogTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid watchdog timezone '%s': %v", c.WatchdogTimezone, err))
	}

	// Validate notifications
	validProviders := []string{"log", "gmail", "mailgun"}
	if !contains(validProviders, c.NotifyProvider) {
		errors = append(errors, fmt.Sprintf("invalid notify provider '%s': must be one of %v", c.NotifyProvider, validProviders))
	}
	if len(c.NotifyTo) == 0 {
		errors = append(errors, "NOTIFY_TO must list at least one recipient")
	}
	if c.NotifyProvider == "gmail" || c.NotifyProvider == "mailgun" {
		for _, to := range c.NotifyTo {
			if _, err := mail.ParseAddress(to); err != nil {
				errors = append(errors, fmt.Sprintf("invalid recipient address '%s'", to))
			}
		}
		if c.NotifyFrom == "" {
			errors = append(errors, fmt.Sprintf("NOTIFY_FROM is required for %s provider", c.NotifyProvider))
		}
	}

	if c.NotifyProvider == "mailgun" {
		if c.MailgunDomain == "" {
			errors = append(errors, "MAILGUN_DOMAIN is required for mailgun provider")
		}
		if c.MailgunAPIKey == "" {
			errors = append(errors, "MAILGUN_API_KEY is required for mailgun provider")
		}
	}

	if c.NotifyProvider == "gmail" {
		// Must have either client file or JSON
		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for gmail provider")
		}

		// Must have either token file or JSON
		hasTokenFile := c.GoogleOAuthTokenFile != ""
		hasTokenJSON := c.GoogleOAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for gmail provider")
		}

		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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
