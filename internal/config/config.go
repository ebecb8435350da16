// Package config loads invoicedesk settings from the environment.
//
// Load never fails on a missing credential; commands call the Require*
// helpers for the settings they actually use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/storage"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string

	// Local store
	DataDir       string
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Back-end service
	BackendURL     string
	CategoriesURL  string
	RequestTimeout time.Duration

	// Invoice analysis
	Analyzer              string
	GoogleProjectID       string
	GoogleLocation        string
	GoogleProcessorID     string
	GoogleCredentials     string
	GoogleCredentialsFile string
	OpenAIAPIKey          string
	OpenAIModel           string

	// Back-end database
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBPath     string

	// HTTP server
	ServerAddr         string
	CORSAllowedOrigins []string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string
}

func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	config := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),

		DataDir:       dataDir,
		StoreBackend:  getEnv("STORE_BACKEND", "file"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:   getEnv("REDIS_PREFIX", storage.DefaultRedisPrefix),

		BackendURL:    getEnv("BACKEND_URL", "http://localhost:8000"),
		CategoriesURL: getEnv("CATEGORIES_URL", ""),

		Analyzer:              strings.ToLower(getEnv("ANALYZER", "mock")),
		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		GoogleLocation:        getEnv("GOOGLE_LOCATION", "us"),
		GoogleProcessorID:     getEnv("GOOGLE_PROCESSOR_ID", ""),
		GoogleCredentials:     getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", ""),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "invoice_db"),
		DBPath:     getEnv("DB_PATH", filepath.Join(dataDir, "invoicedesk.db")),

		ServerAddr:         getEnv("SERVER_ADDR", ":8000"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Invoices"),
	}

	var err error
	if config.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}
	if config.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be a duration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate rejects values that are wrong regardless of the command.
func (c *Config) validate() error {
	switch c.StoreBackend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be file, redis or memory, got %q", c.StoreBackend)
	}
	switch c.DBDriver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverMySQL, DriverSQLite, c.DBDriver)
	}
	return nil
}

// RequireAnalyzer checks the credentials the configured analyzer needs.
func (c *Config) RequireAnalyzer() error {
	hasGoogle := c.GoogleCredentials != "" || c.GoogleCredentialsFile != ""
	switch c.Analyzer {
	case "", "mock":
		return nil
	case "vision":
		if !hasGoogle {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is required for the vision analyzer")
		}
	case "documentai":
		if c.GoogleProjectID == "" {
			return fmt.Errorf("GOOGLE_PROJECT_ID is required for the documentai analyzer")
		}
		if c.GoogleProcessorID == "" {
			return fmt.Errorf("GOOGLE_PROCESSOR_ID is required for the documentai analyzer")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai analyzer")
		}
		if !hasGoogle {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is required for the openai analyzer")
		}
	default:
		return fmt.Errorf("ANALYZER must be mock, vision, documentai or openai, got %q", c.Analyzer)
	}
	return nil
}

// RequireSheets checks the Google Sheets export settings.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	if c.GoogleCredentials == "" && c.GoogleCredentialsFile == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is required for Sheets export")
	}
	return nil
}

// RequireDatabase checks the settings of the configured database driver.
func (c *Config) RequireDatabase() error {
	switch c.DBDriver {
	case DriverMySQL:
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for mysql")
		}
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	}
	return nil
}

// MySQLDSN returns the go-sql-driver DSN for the configured MySQL database.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// StorageOptions returns the options for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:          c.StoreBackend,
		Dir:           c.DataDir,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
