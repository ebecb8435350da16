package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"invoicedesk/internal/storage"
)

// Label of the group of items saved without a category.
const (
	UncategorizedName        = "Chưa phân loại"
	UncategorizedDescription = "Các sản phẩm chưa được chọn danh mục"
)

// InvoiceView is the JSON shape of a saved invoice.
type InvoiceView struct {
	ID            uint       `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	SupplierName  string     `json:"supplier_name"`
	MerchantName  string     `json:"merchant_name"`
	Date          string     `json:"date"`
	TotalAmount   int64      `json:"total_amount"`
	VATRate       int64      `json:"vat_rate"`
	VATAmount     int64      `json:"vat_amount"`
	Items         []ItemView `json:"items"`
	RawText       string     `json:"raw_text"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ItemView is the JSON shape of a saved invoice line.
type ItemView struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	Price        int64  `json:"price"`
	CategoryID   *uint  `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
}

// ProductView is an invoice line listed under its category.
type ProductView struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Price        int64   `json:"price"`
	InvoiceID    uint    `json:"invoice_id"`
	InvoiceDate  *string `json:"invoice_date"`
	MerchantName *string `json:"merchant_name"`
}

// CategoryProducts groups the lines of one category, newest first.
type CategoryProducts struct {
	CategoryID          *uint         `json:"category_id"`
	CategoryName        string        `json:"category_name"`
	CategoryDescription string        `json:"category_description"`
	TotalItems          int           `json:"total_items"`
	TotalAmount         int64         `json:"total_amount"`
	Items               []ProductView `json:"items"`
}

// CategoryStats summarizes the lines of one category.
type CategoryStats struct {
	CategoryID     *uint   `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	TotalItems     int     `json:"total_items"`
	TotalAmount    int64   `json:"total_amount"`
	InvoiceCount   int     `json:"invoice_count"`
	AveragePerItem float64 `json:"average_per_item"`
}

// Store runs the service's queries.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListCategories returns all categories ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return categories, nil
}

// GetCategory returns one category or storage.ErrNotFound.
func (s *Store) GetCategory(ctx context.Context, id uint) (Category, error) {
	var category Category
	err := s.db.WithContext(ctx).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Category{}, fmt.Errorf("GetCategory %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return Category{}, fmt.Errorf("GetCategory %d: %w", id, err)
	}
	return category, nil
}

// CreateInvoice inserts inv and its items in one transaction.
func (s *Store) CreateInvoice(ctx context.Context, inv *Invoice) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(inv).Error
	})
}

// ListInvoices returns the newest invoices with their items.
func (s *Store) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	var invoices []Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Category").
		Order("id desc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}
	return invoices, nil
}

// GetInvoice returns one invoice with its items or storage.ErrNotFound.
func (s *Store) GetInvoice(ctx context.Context, id uint) (Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Category").
		First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Invoice{}, fmt.Errorf("GetInvoice %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("GetInvoice %d: %w", id, err)
	}
	return inv, nil
}

// ProductsByCategory groups all lines by category. Lines without a category
// are listed last, only when there are any.
func (s *Store) ProductsByCategory(ctx context.Context) ([]CategoryProducts, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("ProductsByCategory: %w", err)
	}

	byCategory, uncategorized := groupItems(items)
	result := make([]CategoryProducts, 0, len(categories)+1)
	for _, category := range categories {
		result = append(result, categoryProducts(&category, byCategory[category.ID]))
	}
	if len(uncategorized) > 0 {
		result = append(result, categoryProducts(nil, uncategorized))
	}
	return result, nil
}

// ProductsInCategory lists the lines of one category.
func (s *Store) ProductsInCategory(ctx context.Context, id uint) (CategoryProducts, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return CategoryProducts{}, err
	}
	items, err := s.items(ctx, s.db.Where("category_id = ?", id))
	if err != nil {
		return CategoryProducts{}, fmt.Errorf("ProductsInCategory %d: %w", id, err)
	}
	return categoryProducts(&category, items), nil
}

// Statistics summarizes every category, plus the uncategorized lines when
// there are any.
func (s *Store) Statistics(ctx context.Context) ([]CategoryStats, error) {
	groups, err := s.ProductsByCategory(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]CategoryStats, 0, len(groups))
	for _, group := range groups {
		invoices := make(map[uint]struct{})
		for _, item := range group.Items {
			if item.InvoiceID != 0 {
				invoices[item.InvoiceID] = struct{}{}
			}
		}
		var average float64
		if group.TotalItems > 0 {
			average = float64(group.TotalAmount) / float64(group.TotalItems)
		}
		stats = append(stats, CategoryStats{
			CategoryID:     group.CategoryID,
			CategoryName:   group.CategoryName,
			TotalItems:     group.TotalItems,
			TotalAmount:    group.TotalAmount,
			InvoiceCount:   len(invoices),
			AveragePerItem: average,
		})
	}
	return stats, nil
}

func (s *Store) items(ctx context.Context, query *gorm.DB) ([]InvoiceItem, error) {
	var items []InvoiceItem
	err := query.WithContext(ctx).Preload("Invoice").Order("id desc").Find(&items).Error
	return items, err
}

func groupItems(items []InvoiceItem) (map[uint][]InvoiceItem, []InvoiceItem) {
	byCategory := make(map[uint][]InvoiceItem)
	var uncategorized []InvoiceItem
	for _, item := range items {
		if item.CategoryID == nil {
			uncategorized = append(uncategorized, item)
			continue
		}
		byCategory[*item.CategoryID] = append(byCategory[*item.CategoryID], item)
	}
	return byCategory, uncategorized
}

func categoryProducts(category *Category, items []InvoiceItem) CategoryProducts {
	group := CategoryProducts{
		CategoryName:        UncategorizedName,
		CategoryDescription: UncategorizedDescription,
		TotalItems:          len(items),
		Items:               make([]ProductView, 0, len(items)),
	}
	if category != nil {
		id := category.ID
		group.CategoryID = &id
		group.CategoryName = category.Name
		group.CategoryDescription = category.Description
	}

	for _, item := range items {
		view := ProductView{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			InvoiceID: item.InvoiceID,
		}
		if item.Invoice != nil {
			date, merchant := item.Invoice.Date, item.Invoice.MerchantName
			view.InvoiceDate = &date
			view.MerchantName = &merchant
		}
		group.TotalAmount += item.Price
		group.Items = append(group.Items, view)
	}
	return group
}

func invoiceView(inv Invoice) InvoiceView {
	view := InvoiceView{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		SupplierName:  inv.SupplierName,
		MerchantName:  inv.MerchantName,
		Date:          inv.Date,
		TotalAmount:   inv.TotalAmount,
		VATRate:       inv.VATRate,
		VATAmount:     inv.VATAmount,
		Items:         make([]ItemView, 0, len(inv.Items)),
		RawText:       inv.RawText,
		CreatedAt:     inv.CreatedAt,
	}
	for _, item := range inv.Items {
		iv := ItemView{
			ID:         item.ID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Price:      item.Price,
			CategoryID: item.CategoryID,
		}
		if item.Category != nil {
			iv.CategoryName = item.Category.Name
		}
		view.Items = append(view.Items, iv)
	}
	return view
}
