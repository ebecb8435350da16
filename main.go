package main

import (
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"invoicedesk/cmd"
	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		// Log through the default logger and stop: a bad setting must not
		// silently fall back to defaults.
		if _, setupErr := logger.Setup(logger.DefaultConfig()); setupErr != nil {
			log.Fatalf("Failed to initialize logger: %v", setupErr)
		}
		mainLog := logger.WithComponent("main")
		mainLog.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	closer, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Str("data_dir", cfg.DataDir).Str("store", cfg.StoreBackend).Msg("Starting invoicedesk")

	code := 0
	if err := cmd.Execute(cfg); err != nil {
		code = 1
	}

	closeLog(closer)
	os.Exit(code)
}

func closeLog(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
