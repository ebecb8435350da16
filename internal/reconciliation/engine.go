// Package reconciliation keeps an edited invoice record internally consistent.
//
// Every operation takes an InvoiceRecord by value and returns a new record; the
// input is never mutated. After each operation the derived amounts hold:
//
//   - totalAmount == sum(lineItems[i].total)
//   - vatAmount   == floor(totalAmount * vatRate / 100)
//
// A line item's total is recomputed as quantity * unitPrice only when quantity or
// unitPrice of that item is edited. Otherwise the total is kept as set (for example
// the value read by OCR).
//
// Amounts are summed and multiplied with shopspring/decimal so that the VAT floor
// is taken on the exact decimal product rather than on a binary float approximation.
package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoicedesk/pkg/models"
)

// Field names a top-level editable field of an invoice record.
type Field string

// Editable header fields
const (
	FieldInvoiceNumber   Field = "invoiceNumber"
	FieldSupplierName    Field = "supplierName"
	FieldDate            Field = "date"
	FieldProductCategory Field = "productCategory"
)

// ItemField names an editable field of a line item.
type ItemField string

// Editable line item fields
const (
	ItemProductName ItemField = "productName"
	ItemQuantity    ItemField = "quantity"
	ItemUnitPrice   ItemField = "unitPrice"
	ItemTotal       ItemField = "total"
)

var hundred = decimal.NewFromInt(100)

// NewLineItem returns the item appended by AddLineItem.
func NewLineItem() models.LineItem {
	return models.LineItem{
		ProductName: "",
		Quantity:    1,
		UnitPrice:   0,
		Total:       0,
	}
}

// SetField sets a top-level header field. Derived amounts are not touched.
//
// invoiceNumber, supplierName and date take a string (nil clears the field).
// productCategory takes a models.CategoryRef, *models.CategoryRef, models.Category
// or nil.
func SetField(rec models.InvoiceRecord, field Field, value any) (models.InvoiceRecord, error) {
	const op = "SetField"

	out := rec.Clone()

	switch field {
	case FieldInvoiceNumber, FieldSupplierName, FieldDate:
		text, ok := asText(value)
		if !ok {
			return rec, newEditError(op, string(field), -1, ErrInvalidValue)
		}
		switch field {
		case FieldInvoiceNumber:
			out.InvoiceNumber = text
		case FieldSupplierName:
			out.SupplierName = text
		case FieldDate:
			out.Date = text
		}
	case FieldProductCategory:
		category, ok := asCategory(value)
		if !ok {
			return rec, newEditError(op, string(field), -1, ErrInvalidValue)
		}
		out.ProductCategory = category
	default:
		return rec, newEditError(op, string(field), -1, ErrUnknownField)
	}

	return out, nil
}

// SetVATRate sets vatRate to CoerceNumberOrZero(rate) and recomputes vatAmount.
func SetVATRate(rec models.InvoiceRecord, rate any) models.InvoiceRecord {
	out := rec.Clone()
	out.VATRate = CoerceNumberOrZero(rate)
	out.VATAmount = VATAmount(out.TotalAmount, out.VATRate)
	return out
}

// EditLineItem sets one field of the item at index.
//
// Numeric fields are coerced with CoerceNumberOrZero. Editing quantity or unitPrice
// recomputes that item's total; any edit then recomputes totalAmount and vatAmount.
func EditLineItem(rec models.InvoiceRecord, index int, field ItemField, value any) (models.InvoiceRecord, error) {
	const op = "EditLineItem"

	if index < 0 || index >= len(rec.LineItems) {
		return rec, newEditError(op, string(field), index, ErrIndexOutOfRange)
	}

	out := rec.Clone()
	item := &out.LineItems[index]

	switch field {
	case ItemProductName:
		text, ok := asText(value)
		if !ok {
			return rec, newEditError(op, string(field), index, ErrInvalidValue)
		}
		item.ProductName = text
	case ItemQuantity:
		item.Quantity = CoerceNumberOrZero(value)
		item.Total = LineTotal(item.Quantity, item.UnitPrice)
	case ItemUnitPrice:
		item.UnitPrice = CoerceNumberOrZero(value)
		item.Total = LineTotal(item.Quantity, item.UnitPrice)
	case ItemTotal:
		item.Total = CoerceNumberOrZero(value)
	default:
		return rec, newEditError(op, string(field), index, ErrUnknownField)
	}

	recompute(&out)
	return out, nil
}

// AddLineItem appends a default item. The new item's total is zero so the
// amounts do not change.
func AddLineItem(rec models.InvoiceRecord) models.InvoiceRecord {
	out := rec.Clone()
	out.LineItems = append(out.LineItems, NewLineItem())
	recompute(&out)
	return out
}

// RemoveLineItem removes the item at index and recomputes the amounts.
func RemoveLineItem(rec models.InvoiceRecord, index int) (models.InvoiceRecord, error) {
	const op = "RemoveLineItem"

	if index < 0 || index >= len(rec.LineItems) {
		return rec, newEditError(op, "", index, ErrIndexOutOfRange)
	}

	out := rec.Clone()
	out.LineItems = append(out.LineItems[:index], out.LineItems[index+1:]...)
	recompute(&out)
	return out, nil
}

// Recompute derives totalAmount and vatAmount from the current item totals.
// Item totals themselves are left as they are.
func Recompute(rec models.InvoiceRecord) models.InvoiceRecord {
	out := rec.Clone()
	recompute(&out)
	return out
}

// GrandTotal returns totalAmount + vatAmount.
func GrandTotal(rec models.InvoiceRecord) float64 {
	return rec.GrandTotal()
}

// LineTotal returns quantity * unitPrice.
func LineTotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(unitPrice)).
		InexactFloat64()
}

// SumTotals returns the sum of the item totals.
func SumTotals(items []models.LineItem) float64 {
	return sumTotals(items).InexactFloat64()
}

// VATAmount returns floor(totalAmount * vatRate / 100).
func VATAmount(totalAmount, vatRate float64) float64 {
	return vatAmount(decimal.NewFromFloat(totalAmount), vatRate).InexactFloat64()
}

// recompute updates totalAmount, then vatAmount, on a record owned by the caller.
func recompute(rec *models.InvoiceRecord) {
	total := sumTotals(rec.LineItems)
	rec.TotalAmount = total.InexactFloat64()
	rec.VATAmount = vatAmount(total, rec.VATRate).InexactFloat64()
}

func sumTotals(items []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Total))
	}
	return sum
}

func vatAmount(total decimal.Decimal, vatRate float64) decimal.Decimal {
	return total.Mul(decimal.NewFromFloat(vatRate)).Div(hundred).Floor()
}

func asText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

func asCategory(value any) (*models.CategoryRef, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case models.CategoryRef:
		return &v, true
	case *models.CategoryRef:
		if v == nil {
			return nil, true
		}
		category := *v
		return &category, true
	case models.Category:
		ref := v.Ref()
		return &ref, true
	case map[string]any:
		// decoded JSON {"id": 2, "name": "..."}
		id := int(CoerceNumberOrZero(v["id"]))
		name, _ := v["name"].(string)
		if id == 0 && name == "" {
			return nil, true
		}
		return &models.CategoryRef{ID: id, Name: name}, true
	default:
		return nil, false
	}
}
