package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/storage"
	"invoicedesk/pkg/models"
)

// KeyInvoices is the storage key of the saved invoice list.
const KeyInvoices = "accounting_invoices"

// InvoiceCatalog keeps a local copy of saved invoices.
type InvoiceCatalog struct {
	invoices *storage.Collection[models.InvoiceRecord]
	log      zerolog.Logger
}

// NewInvoiceCatalog returns a catalog storing invoices in backend.
func NewInvoiceCatalog(backend storage.Backend) *InvoiceCatalog {
	return &InvoiceCatalog{
		invoices: storage.NewCollection[models.InvoiceRecord](backend, KeyInvoices),
		log:      logger.WithComponent("catalog-invoices"),
	}
}

// WithClock replaces the time source, for tests.
func (c *InvoiceCatalog) WithClock(now func() time.Time) *InvoiceCatalog {
	c.invoices.WithClock(now)
	return c
}

// List returns the saved invoices, newest first.
func (c *InvoiceCatalog) List(ctx context.Context) ([]models.InvoiceRecord, error) {
	invoices, err := c.invoices.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := createdAt(invoices[i]), createdAt(invoices[j])
		if a.Equal(b) {
			return invoices[i].ID > invoices[j].ID
		}
		return a.After(b)
	})
	return invoices, nil
}

// Get returns one invoice or storage.ErrNotFound.
func (c *InvoiceCatalog) Get(ctx context.Context, id int) (models.InvoiceRecord, error) {
	return c.invoices.Get(ctx, id)
}

// Create stores rec under a new id.
func (c *InvoiceCatalog) Create(ctx context.Context, rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	created, err := c.invoices.Insert(ctx, func(id int, now time.Time) models.InvoiceRecord {
		out := rec.Clone()
		out.ID = id
		out.CreatedAt = &now
		out.UpdatedAt = nil
		return out
	})
	if err != nil {
		return models.InvoiceRecord{}, err
	}

	c.log.Info().
		Int("id", created.ID).
		Str("invoice_number", created.InvoiceNumber).
		Float64("total_amount", created.TotalAmount).
		Msg("Invoice stored")
	return created, nil
}

// Update replaces the stored invoice with rec, keeping its id and creation time.
func (c *InvoiceCatalog) Update(ctx context.Context, id int, rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	return c.invoices.Update(ctx, id, func(stored models.InvoiceRecord, now time.Time) models.InvoiceRecord {
		out := rec.Clone()
		out.ID = stored.ID
		out.CreatedAt = stored.CreatedAt
		out.UpdatedAt = &now
		return out
	})
}

// Delete removes an invoice and reports whether it existed.
func (c *InvoiceCatalog) Delete(ctx context.Context, id int) (bool, error) {
	return c.invoices.Delete(ctx, id)
}

func createdAt(rec models.InvoiceRecord) time.Time {
	if rec.CreatedAt == nil {
		return time.Time{}
	}
	return *rec.CreatedAt
}
