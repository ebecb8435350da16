// Package catalog holds the locally stored records: accounting documents, saved
// invoices and the product category cache.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/storage"
	"invoicedesk/internal/validation"
	"invoicedesk/pkg/models"
)

// KeyDocuments is the storage key of the document list.
const KeyDocuments = "accounting_documents"

// DefaultCreatedBy is recorded when a document is created without an author.
const DefaultCreatedBy = "Admin"

// FilterAll disables the document type filter.
const FilterAll = "all"

var documentMessages = validation.Messages{
	"title":              "Title is required",
	"documentType":       "Document type must be official or internal",
	"productCategory.id": "Product Category is required",
}

// DocumentInput is the user-editable part of a document.
type DocumentInput struct {
	Title        string
	Description  string
	DocumentType string // defaults to official
	CategoryID   int
	Attachments  []string
	CreatedBy    string // defaults to DefaultCreatedBy
}

// DocumentPatch lists the fields to change in Update. Nil fields keep their value.
type DocumentPatch struct {
	Title        *string
	Description  *string
	DocumentType *string
	CategoryID   *int
	Attachments  []string
	CreatedBy    *string
}

// DocumentFilter narrows List results. Zero values match everything.
type DocumentFilter struct {
	DocumentType string // "official", "internal", "" or FilterAll
	CategoryID   int
	Search       string // case-insensitive match on title or description
}

// DocumentStats are the dashboard counters.
type DocumentStats struct {
	Total      int `json:"totalDocuments"`
	Official   int `json:"officialDocuments"`
	Internal   int `json:"internalDocuments"`
	Categories int `json:"totalCategories"`
}

// DocumentService manages accounting documents.
type DocumentService struct {
	docs       *storage.Collection[models.Document]
	categories *Categories
	validator  *validation.Validator
	log        zerolog.Logger
}

// NewDocumentService returns a service storing documents in backend.
func NewDocumentService(backend storage.Backend, categories *Categories) *DocumentService {
	return &DocumentService{
		docs:       storage.NewCollection[models.Document](backend, KeyDocuments),
		categories: categories,
		validator:  validation.New(),
		log:        logger.WithComponent("catalog-documents"),
	}
}

// WithClock replaces the time source, for tests.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.docs.WithClock(now)
	return s
}

// List returns all documents.
func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.docs.List(ctx)
}

// Get returns one document or storage.ErrNotFound.
func (s *DocumentService) Get(ctx context.Context, id int) (models.Document, error) {
	return s.docs.Get(ctx, id)
}

// Create validates in and stores a new document.
func (s *DocumentService) Create(ctx context.Context, in DocumentInput) (models.Document, error) {
	doc := models.Document{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		DocumentType:    in.DocumentType,
		ProductCategory: models.CategoryRef{ID: in.CategoryID},
		Attachments:     in.Attachments,
		CreatedBy:       in.CreatedBy,
	}
	if doc.DocumentType == "" {
		doc.DocumentType = models.DocumentTypeOfficial
	}
	if doc.CreatedBy == "" {
		doc.CreatedBy = DefaultCreatedBy
	}
	if doc.Attachments == nil {
		doc.Attachments = []string{}
	}

	if err := s.check(ctx, &doc); err != nil {
		return models.Document{}, err
	}

	created, err := s.docs.Insert(ctx, func(id int, now time.Time) models.Document {
		doc.ID = id
		doc.CreatedAt = now
		return doc
	})
	if err != nil {
		return models.Document{}, err
	}

	s.log.Info().Int("id", created.ID).Str("title", created.Title).Msg("Document created")
	return created, nil
}

// Update merges patch into the stored document. The id and creation time are kept.
func (s *DocumentService) Update(ctx context.Context, id int, patch DocumentPatch) (models.Document, error) {
	existing, err := s.docs.Get(ctx, id)
	if err != nil {
		return models.Document{}, err
	}

	merged := existing
	if patch.Title != nil {
		merged.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		merged.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DocumentType != nil {
		merged.DocumentType = *patch.DocumentType
	}
	if patch.CategoryID != nil {
		merged.ProductCategory = models.CategoryRef{ID: *patch.CategoryID}
	}
	if patch.Attachments != nil {
		merged.Attachments = patch.Attachments
	}
	if patch.CreatedBy != nil {
		merged.CreatedBy = *patch.CreatedBy
	}

	if err := s.check(ctx, &merged); err != nil {
		return models.Document{}, err
	}

	updated, err := s.docs.Update(ctx, id, func(stored models.Document, now time.Time) models.Document {
		merged.ID = stored.ID
		merged.CreatedAt = stored.CreatedAt
		merged.UpdatedAt = &now
		return merged
	})
	if err != nil {
		return models.Document{}, err
	}

	s.log.Info().Int("id", id).Msg("Document updated")
	return updated, nil
}

// Delete removes a document. It reports whether the document existed; deleting
// an absent id succeeds.
func (s *DocumentService) Delete(ctx context.Context, id int) (bool, error) {
	removed, err := s.docs.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.log.Info().Int("id", id).Bool("removed", removed).Msg("Document deleted")
	return removed, nil
}

// Filter returns the documents matching f, in stored order.
func (s *DocumentService) Filter(ctx context.Context, f DocumentFilter) ([]models.Document, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	return s.docs.Filter(ctx, func(doc models.Document) bool {
		if f.DocumentType != "" && f.DocumentType != FilterAll && doc.DocumentType != f.DocumentType {
			return false
		}
		if f.CategoryID != 0 && doc.ProductCategory.ID != f.CategoryID {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(doc.Title), search) &&
			!strings.Contains(strings.ToLower(doc.Description), search) {
			return false
		}
		return true
	})
}

// Stats counts documents by type and the known categories.
func (s *DocumentService) Stats(ctx context.Context) (DocumentStats, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return DocumentStats{}, err
	}

	stats := DocumentStats{Total: len(docs)}
	for _, doc := range docs {
		switch doc.DocumentType {
		case models.DocumentTypeOfficial:
			stats.Official++
		case models.DocumentTypeInternal:
			stats.Internal++
		}
	}

	if s.categories != nil {
		categories, err := s.categories.Load(ctx)
		if err != nil {
			return DocumentStats{}, err
		}
		stats.Categories = len(categories)
	}
	return stats, nil
}

// check validates doc and resolves its category name.
func (s *DocumentService) check(ctx context.Context, doc *models.Document) error {
	if err := s.validator.Struct(doc, documentMessages); err != nil {
		return err
	}
	if s.categories == nil {
		return nil
	}

	category, err := s.categories.Find(ctx, doc.ProductCategory.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return validation.Errors{{
				Field:   "productCategory.id",
				Tag:     "exists",
				Message: "Invalid product category",
			}}
		}
		return err
	}
	doc.ProductCategory = category.Ref()
	return nil
}
