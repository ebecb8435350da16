package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "STORE_BACKEND", "DB_DRIVER", "DB_PATH", "ANALYZER", "CORS_ALLOWED_ORIGINS", "REDIS_DB", "REQUEST_TIMEOUT", "GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/invoicedesk.db", cfg.DBPath)
	assert.Equal(t, "mock", cfg.Analyzer)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.NoError(t, cfg.RequireAnalyzer())
	assert.NoError(t, cfg.RequireDatabase())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/invoicedesk")
	t.Setenv("DB_PATH", "")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_NAME", "invoices")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/invoicedesk/invoicedesk.db", cfg.DBPath)
	assert.Equal(t, "app:secret@tcp(db:3307)/invoices?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQLDSN())
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSAllowedOrigins)

	opts := cfg.StorageOptions()
	assert.Equal(t, "redis", opts.Kind)
	assert.Equal(t, 3, opts.RedisDB)
	assert.Equal(t, "/var/lib/invoicedesk", opts.Dir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORE_BACKEND", "s3"},
		{"DB_DRIVER", "postgres"},
		{"REDIS_DB", "one"},
		{"REQUEST_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireAnalyzer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "mock", cfg: Config{Analyzer: "mock"}},
		{name: "vision without credentials", cfg: Config{Analyzer: "vision"}, wantErr: true},
		{name: "vision", cfg: Config{Analyzer: "vision", GoogleCredentialsFile: "key.json"}},
		{name: "documentai without processor", cfg: Config{Analyzer: "documentai", GoogleProjectID: "p"}, wantErr: true},
		{name: "documentai", cfg: Config{Analyzer: "documentai", GoogleProjectID: "p", GoogleProcessorID: "x"}},
		{name: "openai without key", cfg: Config{Analyzer: "openai", GoogleCredentials: "{}"}, wantErr: true},
		{name: "openai", cfg: Config{Analyzer: "openai", GoogleCredentials: "{}", OpenAIAPIKey: "sk"}},
		{name: "unknown", cfg: Config{Analyzer: "tesseract"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireAnalyzer()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireSheets(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.RequireSheets())
	cfg.GoogleSheetURL = "https://docs.google.com/spreadsheets/d/abc/edit"
	assert.Error(t, cfg.RequireSheets())
	cfg.GoogleCredentialsFile = "key.json"
	assert.NoError(t, cfg.RequireSheets())
}
