package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/storage"
	"invoicedesk/pkg/models"
)

// KeyCategories is the storage key of the cached category list.
const KeyCategories = "product_categories"

// CategorySource fetches the authoritative category list.
type CategorySource interface {
	FetchCategories(ctx context.Context) ([]models.Category, error)
}

// FallbackCategories is served when the category source cannot be reached.
// It is never written to the cache, so the next Load tries the source again.
func FallbackCategories() []models.Category {
	return []models.Category{
		{ID: 1, Name: "Máy móc thiết bị"},
		{ID: 2, Name: "Nguyên vật liệu"},
		{ID: 3, Name: "Hàng hóa tiêu dùng"},
		{ID: 4, Name: "Dịch vụ"},
	}
}

// Categories serves product categories from the local cache, filling it once
// from a CategorySource.
type Categories struct {
	backend storage.Backend
	source  CategorySource
	log     zerolog.Logger
}

// NewCategories returns a category cache. source may be nil, in which case an
// empty cache always yields the fallback list.
func NewCategories(backend storage.Backend, source CategorySource) *Categories {
	return &Categories{
		backend: backend,
		source:  source,
		log:     logger.WithComponent("catalog-categories"),
	}
}

// Load returns the cached categories, fetching and caching them on first use.
// Any failure to read the cache or reach the source yields FallbackCategories.
func (c *Categories) Load(ctx context.Context) ([]models.Category, error) {
	data, found, err := c.backend.Get(ctx, KeyCategories)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read category cache, using fallback categories")
		return FallbackCategories(), nil
	}

	if found {
		var cached []models.Category
		err := json.Unmarshal(data, &cached)
		if err == nil {
			return cached, nil
		}
		c.log.Warn().Err(err).Msg("Category cache is corrupt, refetching")
	}

	categories, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch categories, using fallback categories")
		return FallbackCategories(), nil
	}
	return categories, nil
}

// Refresh drops the cache and fetches from the source. Unlike Load it reports
// fetch failures.
func (c *Categories) Refresh(ctx context.Context) ([]models.Category, error) {
	return c.fetch(ctx)
}

// Find returns the category with id, or storage.ErrNotFound.
func (c *Categories) Find(ctx context.Context, id int) (models.Category, error) {
	categories, err := c.Load(ctx)
	if err != nil {
		return models.Category{}, err
	}
	for _, category := range categories {
		if category.ID == id {
			return category, nil
		}
	}
	return models.Category{}, fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
}

func (c *Categories) fetch(ctx context.Context) ([]models.Category, error) {
	const op = "Categories.fetch"

	if c.source == nil {
		return nil, fmt.Errorf("%s: no category source configured", op)
	}

	categories, err := c.source.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}
	if err := c.backend.Set(ctx, KeyCategories, data); err != nil {
		c.log.Warn().Err(err).Msg("Failed to cache categories")
	}

	c.log.Info().Int("count", len(categories)).Msg("Categories fetched")
	return categories, nil
}
