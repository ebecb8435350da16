// Package storage is the keyed record store behind the document and invoice
// catalogs. Each key holds one JSON-encoded list of records.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Storage errors
var (
	// ErrNotFound is returned when a record id is absent from a collection.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidKey is returned for empty keys or keys that cannot be mapped to a file name.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrClosed is returned when a closed backend is used.
	ErrClosed = errors.New("storage backend closed")
)

// Backend is a keyed byte store.
//
// Get reports found=false, without error, when the key has never been set.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Kind string // "file" or "redis"

	// file
	Dir string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open opens the backend described by opts. It is called once at process start
// and the result is injected into the catalogs.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", "file":
		return NewFileBackend(opts.Dir)
	case "redis":
		return NewRedisBackend(ctx, RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, redis or memory)", opts.Kind)
	}
}
