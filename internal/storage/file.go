package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileBackend stores each key as <dir>/<key>.json.
//
// Writes within one process are serialised and atomic (temp file + rename).
// Separate processes writing the same key may overwrite each other.
type FileBackend struct {
	dir    string
	mu     sync.RWMutex
	closed bool
	log    zerolog.Logger
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	const op = "NewFileBackend"

	if dir == "" {
		return nil, fmt.Errorf("%s: data directory is required", op)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: failed to create %s: %w", op, dir, err)
	}

	b := &FileBackend{
		dir: dir,
		log: logger.WithComponent("storage-file"),
	}
	b.log.Debug().Str("dir", dir).Msg("File storage opened")
	return b, nil
}

// Get implements Backend.
func (b *FileBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "FileBackend.Get"

	path, err := b.path(key)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: failed to read %s: %w", op, key, err)
	}
	return data, true, nil
}

// Set implements Backend.
func (b *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	const op = "FileBackend.Set"

	path, err := b.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: failed to write %s: %w", op, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", op, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: failed to replace %s: %w", op, key, err)
	}

	b.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("Key written")
	return nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Dir returns the data directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.dir, key+".json"), nil
}
