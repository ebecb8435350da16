package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger implements gorm's logger interface on zerolog.
type GormLogger struct {
	log           zerolog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger returns a gorm logger writing to base at level.
func NewGormLogger(base zerolog.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		log:           base.With().Str("component", "gorm").Logger(),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info().Msg(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn().Msg(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error().Msg(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	event := func(e *zerolog.Event) *zerolog.Event {
		e = e.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql)
		if id := RequestID(ctx); id != "" {
			e = e.Str("request_id", id)
		}
		return e
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		event(l.log.Error()).Err(err).Msg("SQL error")
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		event(l.log.Warn()).Msg(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold))
	case l.level >= gormlogger.Info:
		event(l.log.Debug()).Msg("SQL query")
	}
}

// GormLevel maps a zerolog level name to a gorm log level.
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal", "panic":
		return gormlogger.Error
	case "trace", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
