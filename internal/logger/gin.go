package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request ID in and out of the HTTP service.
const RequestIDHeader = "X-Request-ID"

const ginLoggerKey = "logger"

// RequestIDMiddleware reuses the caller's X-Request-ID or assigns a new UUID,
// echoes it in the response and stores it in the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), id))
		c.Next()
	}
}

// GinMiddleware logs one line per HTTP request on base.
func GinMiddleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqLogger := base.With().
			Str("request_id", RequestID(c.Request.Context())).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(ginLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = reqLogger.Error()
		case status >= 400:
			event = reqLogger.Warn()
		default:
			event = reqLogger.Info()
		}

		event = event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size())
		if query != "" {
			event = event.Str("query", query)
		}
		if len(c.Errors) > 0 {
			event = event.Strs("errors", c.Errors.Errors())
		}
		event.Msg("HTTP request")
	}
}

// Recovery turns a handler panic into a 500 response and an error log line.
func Recovery(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				base.Error().
					Str("request_id", RequestID(c.Request.Context())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Interface("error", err).
					Msg("Panic recovered")
				c.AbortWithStatusJSON(500, gin.H{"detail": "Internal Server Error"})
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger stored by GinMiddleware, or the
// global logger.
func GetGinLogger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return FromContext(c.Request.Context())
}
