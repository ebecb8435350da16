package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestSetup(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := Setup(LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		closer, err := Setup(LogConfig{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		l := WithComponent("test")
		l.Info().Msg("hello")
		require.NoError(t, closer.Close())
		assert.FileExists(t, path)
	})

	t.Run("defaults", func(t *testing.T) {
		closer, err := Setup(DefaultConfig())
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
	})
}

func TestRequestIDContext(t *testing.T) {
	ctx := NewContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	router := gin.New()
	router.Use(RequestIDMiddleware(), GinMiddleware(base), Recovery(base))
	router.GET("/ok", func(c *gin.Context) {
		l := GetGinLogger(c)
		l.Debug().Msg("inside handler")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("assigns request id", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)

		lines := decodeLines(t, &buf)
		last := lines[len(lines)-1]
		assert.Equal(t, "HTTP request", last["message"])
		assert.Equal(t, "info", last["level"])
		assert.Equal(t, id, last["request_id"])
		assert.Equal(t, "x=1", last["query"])
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		lines := decodeLines(t, &buf)
		assert.Equal(t, "warn", lines[len(lines)-1]["level"])
	})

	t.Run("recovers panics", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, buf.String(), "Panic recovered")
	})
}

func TestGormLogger(t *testing.T) {
	var buf bytes.Buffer
	gl := NewGormLogger(zerolog.New(&buf), gormlogger.Warn)
	ctx := NewContext(context.Background(), "req-9")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	gl.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "SQL error", lines[0]["message"])
	assert.Equal(t, "req-9", lines[0]["request_id"])
	assert.Equal(t, "SELECT 1", lines[0]["sql"])

	buf.Reset()
	gl.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Empty(t, buf.String())
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
}
