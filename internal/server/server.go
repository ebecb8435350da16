// Package server is the invoice back-end: it analyzes uploaded invoice
// images and stores saved invoices in MySQL or SQLite.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string // "*" allows every origin
	Analyzer       invoice.Analyzer
}

// Server is the HTTP service.
type Server struct {
	addr     string
	store    *Store
	analyzer invoice.Analyzer
	router   *gin.Engine
	log      zerolog.Logger
}

// New builds the service on db. A nil Analyzer falls back to the mock one.
func New(db *gorm.DB, opts Options) *Server {
	if opts.Analyzer == nil {
		opts.Analyzer = invoice.NewMockAnalyzer()
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}

	s := &Server{
		addr:     opts.Addr,
		store:    NewStore(db),
		analyzer: opts.Analyzer,
		log:      logger.WithComponent("server"),
	}
	s.router = s.routes(opts.AllowedOrigins)
	return s
}

func (s *Server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(logger.RequestIDMiddleware())
	r.Use(logger.GinMiddleware(s.log))
	r.Use(logger.Recovery(s.log))
	r.Use(cors.New(corsConfig(origins)))

	r.POST("/analyze-invoice", s.analyzeInvoice)
	r.POST("/ocr-invoices", s.createOCRInvoice)
	r.POST("/invoices", s.createReceipt)
	r.GET("/invoices", s.listInvoices)
	r.GET("/invoices/:id", s.getInvoice)
	r.GET("/categories", s.listCategories)
	r.GET("/categories/:id", s.getCategory)
	r.GET("/products/by-category", s.productsByCategory)
	r.GET("/products/by-category/:id", s.productsInCategory)
	r.GET("/statistics/by-category", s.statistics)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		detail(c, http.StatusNotFound, "Not Found")
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AddAllowHeaders("Authorization", "Accept", logger.RequestIDHeader)
	config.AddExposeHeaders(logger.RequestIDHeader)
	config.AllowCredentials = true
	return config
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
