// Package sqlgen renders an invoice record as MySQL INSERT statements for preview
// and copy. The text is never executed by this module.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"invoicedesk/pkg/models"
)

// DefaultCategoryID is used when the record has no product category.
const DefaultCategoryID = 1

// Statements holds the generated SQL text.
type Statements struct {
	HeaderSQL string `json:"headerSql"`
	ItemsSQL  string `json:"itemsSql"`
	FullSQL   string `json:"fullSql"`
}

// Part selects one of the generated statement groups.
type Part string

// Statement groups
const (
	PartHeader Part = "header"
	PartItems  Part = "items"
	PartFull   Part = "full"
)

// Get returns the text of one statement group.
func (s Statements) Get(part Part) (string, error) {
	switch part {
	case PartHeader:
		return s.HeaderSQL, nil
	case PartItems:
		return s.ItemsSQL, nil
	case PartFull, "":
		return s.FullSQL, nil
	default:
		return "", fmt.Errorf("unknown SQL part %q (want header, items or full)", part)
	}
}

const headerTemplate = `INSERT INTO invoices (invoice_number, supplier_name, date, total_amount, vat_amount, product_category_id, created_at)
VALUES ('%s', '%s', '%s', %s, %s, %d, NOW());`

const itemTemplate = `INSERT INTO invoice_items (invoice_id, product_name, quantity, unit_price, total)
VALUES (%s, '%s', %s, %s, %s);`

// Synthesize generates the header and item statements for rec.
//
// Item i references the header row as LAST_INSERT_ID() + i. That offset only holds
// when a single writer inserts the items right after the header in one session.
func Synthesize(rec models.InvoiceRecord) Statements {
	header := fmt.Sprintf(headerTemplate,
		Quote(rec.InvoiceNumber),
		Quote(rec.SupplierName),
		Quote(rec.Date),
		FormatNumber(rec.TotalAmount),
		FormatNumber(rec.VATAmount),
		categoryID(rec.ProductCategory),
	)

	items := make([]string, 0, len(rec.LineItems))
	for i, item := range rec.LineItems {
		items = append(items, fmt.Sprintf(itemTemplate,
			invoiceIDRef(i),
			Quote(item.ProductName),
			FormatNumber(item.Quantity),
			FormatNumber(item.UnitPrice),
			FormatNumber(item.Total),
		))
	}
	itemsSQL := strings.Join(items, "\n\n")

	full := header
	if itemsSQL != "" {
		full = header + "\n\n" + itemsSQL
	}

	return Statements{
		HeaderSQL: header,
		ItemsSQL:  itemsSQL,
		FullSQL:   full,
	}
}

// Quote escapes s for use inside a single-quoted MySQL string literal.
// Text without quotes or backslashes is returned unchanged.
func Quote(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	return literalEscaper.Replace(s)
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

// FormatNumber renders v in the shortest decimal form, e.g. 500000 or 12.5.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func invoiceIDRef(index int) string {
	if index == 0 {
		return "LAST_INSERT_ID()"
	}
	return fmt.Sprintf("LAST_INSERT_ID() + %d", index)
}

func categoryID(category *models.CategoryRef) int {
	if category == nil || category.ID == 0 {
		return DefaultCategoryID
	}
	return category.ID
}
