package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// HTTP Server
	Port         string
	LogLevel     string
	RateLimitRPM int

	// CORSAllowedOrigins lists browser origins allowed to call the API; empty disables CORS.
	CORSAllowedOrigins []string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Auth
	JWTSecret string
	DevUserID string

	// Dashboard statistics
	StatsFreshness       time.Duration
	StatsCacheSize       int
	CacheCleanupInterval time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/dompet.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		DevUserID: getEnv("DEV_USER_ID", ""),

		StatsFreshness:       getEnvDuration("STATS_FRESHNESS", 5*time.Minute),
		StatsCacheSize:       getEnvInt("STATS_CACHE_SIZE", 1000),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dompet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}

	return cfg
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

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
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
	}

	if c.DataBackend == BackendPostgres {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if parsedURL, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	if c.StatsFreshness <= 0 {
		errors = append(errors, fmt.Sprintf("invalid stats freshness %v: must be positive", c.StatsFreshness))
	}
	if c.StatsCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache size %d: must not be negative", c.StatsCacheSize))
	}
	if c.CacheCleanupInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must not be negative", c.CacheCleanupInterval))
	}
	if c.RateLimitRPM < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitRPM))
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s': must be '*' or an http(s) origin", origin))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if the ledger mirror is enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateServer adds the checks only the HTTP server needs: every request
// must be attributable to a user.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" && c.DevUserID == "" {
		return fmt.Errorf("configuration validation failed:\n- either JWT_SECRET or DEV_USER_ID must be provided")
	}
	return nil
}

// ValidateWorker checks the extra settings the ledger worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AMQPURL == "" {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required for the worker")
	}
	if c.DataBackend == BackendMemory {
		return fmt.Errorf("configuration validation failed:\n- the worker needs a persistent backend (sqlite or postgres)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
