package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRef points at a product category by id, carrying its display name.
type CategoryRef struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name"`
}

// LineItem is one product row of an invoice.
type LineItem struct {
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Total       float64 `json:"total" validate:"gte=0"` // quantity * unitPrice unless set independently (e.g. by OCR)
}

// InvoiceRecord is the editable invoice produced by OCR and persisted on save.
type InvoiceRecord struct {
	// Identity (set once persisted)
	ID int `json:"id,omitempty"`

	// Header fields, free text
	InvoiceNumber   string       `json:"invoiceNumber" validate:"required"`
	SupplierName    string       `json:"supplierName"`
	Date            string       `json:"date"`
	ProductCategory *CategoryRef `json:"productCategory" validate:"required"`

	// Amounts. TotalAmount and VATAmount are derived from the line items and VATRate.
	VATRate     float64    `json:"vatRate" validate:"gte=0"`
	VATAmount   float64    `json:"vatAmount" validate:"gte=0"`
	TotalAmount float64    `json:"totalAmount" validate:"gte=0"`
	LineItems   []LineItem `json:"lineItems" validate:"min=1,dive"`

	// Original OCR text, display only
	RawText string `json:"rawText,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the record.
func (r InvoiceRecord) Clone() InvoiceRecord {
	out := r
	if r.ProductCategory != nil {
		category := *r.ProductCategory
		out.ProductCategory = &category
	}
	if r.LineItems != nil {
		out.LineItems = make([]LineItem, len(r.LineItems))
		copy(out.LineItems, r.LineItems)
	}
	if r.CreatedAt != nil {
		createdAt := *r.CreatedAt
		out.CreatedAt = &createdAt
	}
	if r.UpdatedAt != nil {
		updatedAt := *r.UpdatedAt
		out.UpdatedAt = &updatedAt
	}
	return out
}

// GrandTotal is the amount payable including VAT. It is never stored.
func (r InvoiceRecord) GrandTotal() float64 {
	return decimal.NewFromFloat(r.TotalAmount).
		Add(decimal.NewFromFloat(r.VATAmount)).
		InexactFloat64()
}

// EntityID implements storage.Entity.
func (r InvoiceRecord) EntityID() int {
	return r.ID
}

// SavedInvoice is the back-end echo returned after persisting an invoice.
type SavedInvoice struct {
	Message       string  `json:"message,omitempty"`
	ID            int     `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	TotalAmount   float64 `json:"totalAmount"`
}
