package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the invoice back-end HTTP service",
	Long: `Run the back-end used by "analyze --remote" and "save".

Endpoints:
  POST /analyze-invoice           analyze an uploaded image (multipart field "file")
  POST /ocr-invoices              save an invoice record
  POST /invoices                  save a store receipt
  GET  /invoices[/:id]            saved invoices, newest first
  GET  /categories[/:id]          product categories
  GET  /products/by-category[/:id]
  GET  /statistics/by-category

The database is MySQL (DB_DRIVER=mysql, DB_HOST, DB_PORT, DB_USER,
DB_PASSWORD, DB_NAME) or SQLite (DB_DRIVER=sqlite, DB_PATH). Twenty default
product categories are created on first start.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: SERVER_ADDR)")
	serveCmd.Flags().String("analyzer", "", "Analyzer for /analyze-invoice (default: ANALYZER)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	c := *appConfig()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		c.ServerAddr = addr
	}
	if kind, _ := cmd.Flags().GetString("analyzer"); kind != "" {
		c.Analyzer = kind
	}
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if err := c.RequireAnalyzer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig := server.DatabaseConfig{Driver: c.DBDriver, Path: c.DBPath, LogLevel: c.LogLevel}
	if c.DBDriver == config.DriverMySQL {
		dbConfig.DSN = c.MySQLDSN()
	}
	db, err := server.OpenDatabase(dbConfig)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info().Str("driver", c.DBDriver).Msg("Database connected")

	if _, err := server.SeedCategories(ctx, db); err != nil {
		log.Error().Err(err).Msg("Failed to seed categories")
	}

	analyzer, err := invoice.NewAnalyzer(ctx, c.Analyzer)
	if err != nil {
		return analysisError(err)
	}
	defer func() {
		if err := invoice.Close(analyzer); err != nil {
			log.Warn().Err(err).Msg("Failed to close analyzer")
		}
	}()

	if c.LogLevel != "debug" && c.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(db, server.Options{
		Addr:           c.ServerAddr,
		AllowedOrigins: c.CORSAllowedOrigins,
		Analyzer:       analyzer,
	})
	return srv.Run(ctx)
}
