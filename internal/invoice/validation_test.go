package invoice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func validRecord() models.InvoiceRecord {
	return models.InvoiceRecord{
		InvoiceNumber:   "HD00123",
		SupplierName:    MockSupplier,
		Date:            "2024-03-15",
		ProductCategory: &models.CategoryRef{ID: 3, Name: "Điện tử & Công nghệ"},
		VATRate:         10,
		VATAmount:       1300000,
		TotalAmount:     13000000,
		LineItems: []models.LineItem{
			{ProductName: "Máy in HP LaserJet", Quantity: 1, UnitPrice: 12500000, Total: 12500000},
			{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000},
		},
	}
}

func TestValidateForSave(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		assert.NoError(t, ValidateForSave(validRecord()))
	})

	t.Run("messages in field order", func(t *testing.T) {
		rec := validRecord()
		rec.InvoiceNumber = ""
		rec.ProductCategory = nil
		rec.LineItems = nil

		err := ValidateForSave(rec)
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))

		messages := make([]string, len(errs))
		for i, fe := range errs {
			messages[i] = fe.Message
		}
		assert.Equal(t, []string{MsgInvoiceNumberRequired, MsgCategoryRequired, MsgLineItemsRequired}, messages)
	})

	t.Run("empty line item list", func(t *testing.T) {
		rec := validRecord()
		rec.LineItems = []models.LineItem{}

		err := ValidateForSave(rec)
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		require.Len(t, errs, 1)
		assert.Equal(t, "lineItems", errs[0].Field)
	})

	t.Run("category without id", func(t *testing.T) {
		rec := validRecord()
		rec.ProductCategory = &models.CategoryRef{Name: "Khác"}

		err := ValidateForSave(rec)
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		assert.Equal(t, MsgCategoryRequired, messageFor(errs, "productCategory.id"))
	})

	t.Run("negative amounts", func(t *testing.T) {
		rec := validRecord()
		rec.VATRate = -1
		rec.LineItems[1].Quantity = -10

		err := ValidateForSave(rec)
		var errs ValidationErrors
		require.True(t, errors.As(err, &errs))
		require.Len(t, errs, 2)
		assert.Equal(t, "vatRate", errs[0].Field)
		assert.Equal(t, "lineItems[1].quantity", errs[1].Field)
		assert.Equal(t, "Số lượng không được âm", errs[1].Message)
	})

	t.Run("blank product names are allowed", func(t *testing.T) {
		rec := validRecord()
		rec.LineItems[0].ProductName = ""
		assert.NoError(t, ValidateForSave(rec))
	})
}

// messageFor returns the message reported for field, or "".
func messageFor(errs ValidationErrors, field string) string {
	for _, fe := range errs {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func TestAmountCheck(t *testing.T) {
	rec := validRecord()

	tests := []struct {
		name     string
		stated   float64
		mutate   func(*models.InvoiceRecord)
		warnings int
		contains string
	}{
		{name: "no stated total", stated: 0, warnings: 0},
		{name: "matching total", stated: 13000000, warnings: 0},
		{name: "within tolerance", stated: 13500000, warnings: 0},
		{name: "above tolerance", stated: 20000000, warnings: 1, contains: "total amount discrepancy"},
		{
			name:   "line total differs from quantity x unit price",
			stated: 13000000,
			mutate: func(r *models.InvoiceRecord) {
				r.LineItems[1].UnitPrice = 10000
			},
			warnings: 1,
			contains: "line item 2 (Giấy A4)",
		},
		{
			name:   "empty line is ignored",
			stated: 0,
			mutate: func(r *models.InvoiceRecord) {
				r.LineItems = append(r.LineItems, models.LineItem{Quantity: 1})
			},
			warnings: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec.Clone()
			if tt.mutate != nil {
				tt.mutate(&r)
			}
			warnings := AmountCheck(tt.stated, r)
			assert.Len(t, warnings, tt.warnings)
			if tt.contains != "" && len(warnings) > 0 {
				assert.Contains(t, warnings[0], tt.contains)
			}
		})
	}
}

func TestCalculateDiscrepancy(t *testing.T) {
	assert.Equal(t, 0.0, calculateDiscrepancy(0, 0))
	assert.Equal(t, 100.0, calculateDiscrepancy(0, 50))
	assert.Equal(t, 50.0, calculateDiscrepancy(100, 50))
	assert.Equal(t, 50.0, calculateDiscrepancy(50, 100))
}
