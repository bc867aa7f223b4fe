package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	validBackends = []string{"memory", "sqlite", "postgres"}
	validFormats  = []string{"png", "jpeg", "jpg"}
	validLevels   = []string{"debug", "info", "warn", "warning", "error"}
	validCurrency = []string{"DZD", "EUR"}
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPM   int
	RequestTimeout time.Duration

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string
	SeedFile     string

	// Rendering
	TemplateDir    string
	OutputDir      string
	OutputFormat   string
	JPEGQuality    int
	FontRegular    string
	FontBold       string
	LayoutCacheTTL time.Duration
	Currency       string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets register, optional
	GoogleSpreadsheetID string
	GoogleSheetName     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", 120),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", "memory")),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cheques.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SeedFile:     getEnv("SEED_FILE", ""),

		TemplateDir:    getEnv("TEMPLATE_DIR", "./templates"),
		OutputDir:      getEnv("OUTPUT_DIR", "./output"),
		OutputFormat:   strings.ToLower(getEnv("OUTPUT_FORMAT", "png")),
		JPEGQuality:    getEnvInt("JPEG_QUALITY", 90),
		FontRegular:    getEnv("FONT_REGULAR", ""),
		FontBold:       getEnv("FONT_BOLD", ""),
		LayoutCacheTTL: getEnvDuration("LAYOUT_CACHE_TTL", 5*time.Minute),
		Currency:       strings.ToUpper(getEnv("CURRENCY", "DZD")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "imprimecheque"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "check_issued"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Chèques"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks every setting and reports all problems at once. It creates
// the SQLite and output directories when they are missing.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(filepath.Dir(c.SQLiteDBPath)); msg != "" {
			errors = append(errors, "SQLite database directory: "+msg)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file '%s' is not readable: %v", c.SeedFile, err))
		}
	}

	if !slices.Contains(validFormats, c.OutputFormat) {
		errors = append(errors, fmt.Sprintf("invalid output format '%s': must be one of %v", c.OutputFormat, validFormats))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errors = append(errors, fmt.Sprintf("invalid JPEG quality %d: must be between 1 and 100", c.JPEGQuality))
	}
	if c.OutputDir == "" {
		errors = append(errors, "output directory cannot be empty")
	} else if msg := ensureDir(c.OutputDir); msg != "" {
		errors = append(errors, "output directory: "+msg)
	}
	for _, f := range []string{c.FontRegular, c.FontBold} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errors = append(errors, fmt.Sprintf("font file '%s' is not readable: %v", f, err))
		}
	}
	if c.LayoutCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid layout cache TTL %v: must be at least 1 second", c.LayoutCacheTTL))
	}
	if !slices.Contains(validCurrency, c.Currency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be one of %v", c.Currency, validCurrency))
	}

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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name cannot be empty when a spreadsheet is configured")
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EventsEnabled reports whether issued checks are published to AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// RegisterEnabled reports whether rendered checks go to a Google Sheet.
func (c *Config) RegisterEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func ensureDir(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("cannot create '%s': %v", dir, err)
		}
	}
	return ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
