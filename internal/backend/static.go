package backend

import (
	"context"
	"net/http"

	"invoicedesk/pkg/models"
)

// StaticCategories fetches a category list published as a static JSON file,
// e.g. /productCategories.json of the web front-end.
type StaticCategories struct {
	URL    string
	client *Client
}

// NewStaticCategories returns a category source reading url.
func NewStaticCategories(url string, opts ...Option) *StaticCategories {
	return &StaticCategories{
		URL:    url,
		client: NewClient("", opts...),
	}
}

// FetchCategories implements catalog.CategorySource.
func (s *StaticCategories) FetchCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.client.do(ctx, "FetchStaticCategories", http.MethodGet, s.URL, "", nil, MsgCategoriesFailed, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
