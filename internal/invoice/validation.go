package invoice

import (
	"fmt"
	"math"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/internal/validation"
	"invoicedesk/pkg/models"
)

// Save-time messages shown to the user.
const (
	MsgInvoiceNumberRequired = "Vui lòng nhập số hóa đơn"
	MsgCategoryRequired      = "Vui lòng chọn danh mục sản phẩm"
	MsgLineItemsRequired     = "Vui lòng thêm ít nhất một sản phẩm"
)

// MaxAmountDiscrepancy is the tolerated difference, in percent, between the
// stated total and the line-item sum.
const MaxAmountDiscrepancy = 5.0

var saveMessages = validation.Messages{
	"invoiceNumber":         MsgInvoiceNumberRequired,
	"productCategory":       MsgCategoryRequired,
	"productCategory.id":    MsgCategoryRequired,
	"lineItems":             MsgLineItemsRequired,
	"vatRate":               "Thuế suất VAT không được âm",
	"vatAmount":             "Tiền thuế VAT không được âm",
	"totalAmount":           "Tổng tiền không được âm",
	"lineItems[].quantity":  "Số lượng không được âm",
	"lineItems[].unitPrice": "Đơn giá không được âm",
	"lineItems[].total":     "Thành tiền không được âm",
}

var saveValidator = validation.New()

// ValidateForSave checks rec before it is persisted: invoice number, product
// category and at least one line item are required, amounts must not be
// negative. It returns nil or ValidationErrors in field order.
func ValidateForSave(rec models.InvoiceRecord) error {
	return saveValidator.Struct(rec, saveMessages)
}

// AmountCheck compares the total printed on the document with the line-item
// sum of rec and returns a warning for each discrepancy above
// MaxAmountDiscrepancy percent. A zero stated total is not checked.
func AmountCheck(statedTotal float64, rec models.InvoiceRecord) []string {
	var warnings []string

	itemSum := reconciliation.SumTotals(rec.LineItems)
	if statedTotal > 0 {
		discrepancy := calculateDiscrepancy(statedTotal, itemSum)
		if discrepancy > MaxAmountDiscrepancy {
			warnings = append(warnings, fmt.Sprintf(
				"total amount discrepancy: stated=%.2f, line items=%.2f (%.1f%% difference)",
				statedTotal, itemSum, discrepancy))
		}
	}

	for i, item := range rec.LineItems {
		expected := reconciliation.LineTotal(item.Quantity, item.UnitPrice)
		if item.Total == 0 && expected == 0 {
			continue
		}
		discrepancy := calculateDiscrepancy(item.Total, expected)
		if discrepancy > MaxAmountDiscrepancy {
			warnings = append(warnings, fmt.Sprintf(
				"line item %d (%s): total %.2f does not match quantity x unit price %.2f (%.1f%% difference)",
				i+1, item.ProductName, item.Total, expected, discrepancy))
		}
	}

	if len(warnings) > 0 {
		log := logger.WithComponent("amount-check")
		log.Warn().
			Str("invoice_number", rec.InvoiceNumber).
			Float64("stated_total", statedTotal).
			Float64("line_item_sum", itemSum).
			Strs("warnings", warnings).
			Msg("Amount discrepancies found")
	}
	return warnings
}

// calculateDiscrepancy returns the difference of a and b as a percentage of the larger.
func calculateDiscrepancy(a, b float64) float64 {
	a, b = math.Abs(a), math.Abs(b)
	larger, smaller := a, b
	if b > a {
		larger, smaller = b, a
	}
	if larger == 0 {
		return 0
	}
	return (larger - smaller) / larger * 100
}
