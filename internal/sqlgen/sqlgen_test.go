package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func TestSynthesizeSingleItem(t *testing.T) {
	rec := models.InvoiceRecord{
		InvoiceNumber:   "HD00123",
		SupplierName:    "CTY TNHH ABC",
		Date:            "15/03/2024",
		ProductCategory: &models.CategoryRef{ID: 2, Name: "Nguyên vật liệu"},
		VATRate:         10,
		VATAmount:       50000,
		TotalAmount:     500000,
		LineItems: []models.LineItem{
			{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000},
		},
	}

	stmts := Synthesize(rec)

	assert.Equal(t, `INSERT INTO invoices (invoice_number, supplier_name, date, total_amount, vat_amount, product_category_id, created_at)
VALUES ('HD00123', 'CTY TNHH ABC', '15/03/2024', 500000, 50000, 2, NOW());`, stmts.HeaderSQL)

	assert.Equal(t, `INSERT INTO invoice_items (invoice_id, product_name, quantity, unit_price, total)
VALUES (LAST_INSERT_ID(), 'Giấy A4', 10, 50000, 500000);`, stmts.ItemsSQL)

	assert.Equal(t, 1, strings.Count(stmts.ItemsSQL, "INSERT INTO"))
	assert.NotContains(t, stmts.ItemsSQL, "LAST_INSERT_ID() +")
	assert.Equal(t, stmts.HeaderSQL+"\n\n"+stmts.ItemsSQL, stmts.FullSQL)
}

func TestSynthesizeItemOffsets(t *testing.T) {
	rec := models.InvoiceRecord{
		InvoiceNumber: "HD1",
		LineItems: []models.LineItem{
			{ProductName: "A", Quantity: 1, UnitPrice: 1, Total: 1},
			{ProductName: "B", Quantity: 2, UnitPrice: 2.5, Total: 5},
			{ProductName: "C", Quantity: 0.5, UnitPrice: 3, Total: 1.5},
		},
	}

	stmts := Synthesize(rec)
	parts := strings.Split(stmts.ItemsSQL, "\n\n")
	require.Len(t, parts, 3)

	assert.Contains(t, parts[0], "VALUES (LAST_INSERT_ID(), 'A', 1, 1, 1);")
	assert.Contains(t, parts[1], "VALUES (LAST_INSERT_ID() + 1, 'B', 2, 2.5, 5);")
	assert.Contains(t, parts[2], "VALUES (LAST_INSERT_ID() + 2, 'C', 0.5, 3, 1.5);")
}

func TestSynthesizeCategoryFallback(t *testing.T) {
	tests := []struct {
		name     string
		category *models.CategoryRef
		expected string
	}{
		{name: "missing category", category: nil, expected: ", 1, NOW());"},
		{name: "zero id", category: &models.CategoryRef{}, expected: ", 1, NOW());"},
		{name: "set category", category: &models.CategoryRef{ID: 17}, expected: ", 17, NOW());"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := Synthesize(models.InvoiceRecord{ProductCategory: tt.category})
			assert.True(t, strings.HasSuffix(stmts.HeaderSQL, tt.expected), stmts.HeaderSQL)
		})
	}
}

func TestSynthesizeWithoutItems(t *testing.T) {
	stmts := Synthesize(models.InvoiceRecord{InvoiceNumber: "HD2"})

	assert.Empty(t, stmts.ItemsSQL)
	assert.Equal(t, stmts.HeaderSQL, stmts.FullSQL)
}

func TestSynthesizeEscapesLiterals(t *testing.T) {
	rec := models.InvoiceRecord{
		InvoiceNumber: "HD'1",
		SupplierName:  `O'Brien \ Co`,
		LineItems: []models.LineItem{
			{ProductName: "Bàn 'gỗ'", Quantity: 1, UnitPrice: 10, Total: 10},
		},
	}

	stmts := Synthesize(rec)

	assert.Contains(t, stmts.HeaderSQL, `VALUES ('HD''1', 'O''Brien \\ Co', '', 0, 0, 1, NOW());`)
	assert.Contains(t, stmts.ItemsSQL, `'Bàn ''gỗ'''`)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "Giấy A4", Quote("Giấy A4"))
	assert.Equal(t, "it''s", Quote("it's"))
	assert.Equal(t, `a\\b`, Quote(`a\b`))
	assert.Equal(t, `\\''`, Quote(`\'`))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "500000", FormatNumber(500000))
	assert.Equal(t, "12.5", FormatNumber(12.5))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "14300000", FormatNumber(14300000))
	assert.Equal(t, "0.1", FormatNumber(0.1))
}

func TestStatementsGet(t *testing.T) {
	stmts := Statements{HeaderSQL: "h", ItemsSQL: "i", FullSQL: "f"}

	for part, expected := range map[Part]string{PartHeader: "h", PartItems: "i", PartFull: "f", "": "f"} {
		got, err := stmts.Get(part)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}

	_, err := stmts.Get("footer")
	assert.Error(t, err)
}
