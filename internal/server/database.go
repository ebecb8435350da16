package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"invoicedesk/internal/logger"
)

// DatabaseConfig selects the database behind the service.
type DatabaseConfig struct {
	Driver   string // "mysql" or "sqlite"
	DSN      string // mysql
	Path     string // sqlite file, or ":memory:"
	LogLevel string
}

// OpenDatabase connects to the configured database and migrates the schema.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	const op = "OpenDatabase"

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%s: mysql DSN is empty", op)
		}
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("%s: failed to create database directory: %w", op, err)
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(logger.GetLogger(), logger.GormLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Driver != "mysql" {
		// one connection keeps a :memory: database alive and shared
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Category{}, &Invoice{}, &InvoiceItem{}); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

// SeedCategories inserts DefaultCategories when the category table is empty.
// It reports how many rows were inserted.
func SeedCategories(ctx context.Context, db *gorm.DB) (int, error) {
	const op = "SeedCategories"
	log := logger.WithComponent("server")

	var count int64
	if err := db.WithContext(ctx).Model(&Category{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if count > 0 {
		log.Debug().Int64("categories", count).Msg("Categories already present, skipping seed")
		return 0, nil
	}

	rows := make([]Category, len(DefaultCategories))
	copy(rows, DefaultCategories)
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info().Int("categories", len(rows)).Msg("Seeded product categories")
	return len(rows), nil
}
