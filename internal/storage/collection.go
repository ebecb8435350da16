package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Entity is a record with an integer id.
type Entity interface {
	EntityID() int
}

// Collection is a list of records of one type stored under a single key.
//
// Ids are assigned as max(existing ids) + 1, or 1 for an empty list. Deleted ids
// are not reused while a higher id remains in the list; deleting the highest id
// frees it for the next insert.
type Collection[T Entity] struct {
	backend Backend
	key     string
	now     func() time.Time
}

// NewCollection returns a collection stored under key.
func NewCollection[T Entity](backend Backend, key string) *Collection[T] {
	return &Collection[T]{
		backend: backend,
		key:     key,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (c *Collection[T]) WithClock(now func() time.Time) *Collection[T] {
	c.now = now
	return c
}

// Key returns the storage key.
func (c *Collection[T]) Key() string {
	return c.key
}

// List returns all records in insertion order. A missing key is an empty list.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	data, found, err := c.backend.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.key, err)
	}
	if !found || len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("list %s: decode: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns the record with id or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id int) (T, error) {
	var zero T

	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.EntityID() == id {
			return item, nil
		}
	}
	return zero, fmt.Errorf("%s %d: %w", c.key, id, ErrNotFound)
}

// Insert appends the record built by build, which receives the new id and the
// current time.
func (c *Collection[T]) Insert(ctx context.Context, build func(id int, now time.Time) T) (T, error) {
	var zero T

	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}

	item := build(NextID(items), c.now())
	items = append(items, item)

	if err := c.save(ctx, items); err != nil {
		return zero, err
	}
	return item, nil
}

// Update replaces the record with id by the result of merge, which receives the
// stored record and the current time. Returns ErrNotFound when id is absent.
func (c *Collection[T]) Update(ctx context.Context, id int, merge func(existing T, now time.Time) T) (T, error) {
	var zero T

	items, err := c.List(ctx)
	if err != nil {
		return zero, err
	}

	for i, item := range items {
		if item.EntityID() != id {
			continue
		}
		items[i] = merge(item, c.now())
		if err := c.save(ctx, items); err != nil {
			return zero, err
		}
		return items[i], nil
	}
	return zero, fmt.Errorf("%s %d: %w", c.key, id, ErrNotFound)
}

// Delete removes the record with id and reports whether one was removed.
// Deleting an absent id is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id int) (bool, error) {
	items, err := c.List(ctx)
	if err != nil {
		return false, err
	}

	kept := items[:0]
	for _, item := range items {
		if item.EntityID() != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}

	if err := c.save(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Filter returns the records for which keep returns true, in stored order.
func (c *Collection[T]) Filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Replace overwrites the whole list.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	return c.save(ctx, items)
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("save %s: encode: %w", c.key, err)
	}
	if err := c.backend.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

// NextID returns max(ids) + 1, or 1 when items is empty.
func NextID[T Entity](items []T) int {
	highest := 0
	for _, item := range items {
		if id := item.EntityID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}
