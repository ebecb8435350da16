package models

import "time"

// Document types
const (
	DocumentTypeOfficial = "official"
	DocumentTypeInternal = "internal"
)

// Document is a generic accounting document kept in the local store.
type Document struct {
	ID              int         `json:"id"`
	Title           string      `json:"title" validate:"required"`
	Description     string      `json:"description"`
	DocumentType    string      `json:"documentType" validate:"oneof=official internal"`
	ProductCategory CategoryRef `json:"productCategory"`
	Attachments     []string    `json:"attachments"`
	CreatedBy       string      `json:"createdBy"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       *time.Time  `json:"updatedAt,omitempty"`
}

// EntityID implements storage.Entity.
func (d Document) EntityID() int {
	return d.ID
}

// Category is a product category.
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Ref returns the category as a reference.
func (c Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}
