package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
)

// DefaultRedisPrefix namespaces keys written by RedisBackend.
const DefaultRedisPrefix = "invoicedesk:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend stores each key as a Redis string.
type RedisBackend struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	const op = "NewRedisBackend"

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%s: redis address is required", op)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to Redis at %s: %w", op, cfg.Addr, err)
	}

	b := NewRedisBackendWithClient(client, cfg.Prefix)
	b.log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis storage connected")
	return b, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{
		client: client,
		prefix: prefix,
		log:    logger.WithComponent("storage-redis"),
	}
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrInvalidKey
	}

	value, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("RedisBackend.Get: %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Backend. Keys never expire.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("RedisBackend.Set: %s: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
