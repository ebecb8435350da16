package invoice

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/ocr"
	"invoicedesk/pkg/models"
)

var (
	datePattern          = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`)
	itemPattern          = regexp.MustCompile(`(?i)^(.+?)[\s.:]+(\d[\d,.]*)\s*(?:đ|₫|vnđ|vnd)?$`)
	quantityPattern      = regexp.MustCompile(`^(.*?)\s+[xX]\s*(\d+)$`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)^(?:số hóa đơn|số|invoice no\.?|no\.)\s*:?\s*([A-Za-z0-9][A-Za-z0-9/-]*)$`)
	vatRatePattern       = regexp.MustCompile(`(?i)(?:vat|thuế suất|thuế gtgt)[^\d\n]*(\d{1,2}(?:[.,]\d+)?)\s*%`)
	nonDigits            = regexp.MustCompile(`[^\d]`)
)

// supplierPrefixes introduce the supplier name on its own line.
var supplierPrefixes = []string{"nhà cung cấp:", "đơn vị bán hàng:", "đơn vị bán:", "supplier:", "seller:"}

// totalPrefixes introduce the pre-VAT total.
var totalPrefixes = []string{"tổng cộng", "cộng tiền hàng", "subtotal", "total"}

// skipPrefixes mark summary and contact lines that look like item lines.
var skipPrefixes = []string{
	"tổng", "cộng", "thuế", "thành tiền", "vat", "total", "subtotal",
	"điện thoại", "đt", "tel", "phone", "fax", "mst", "mã số thuế", "số tài khoản", "stk",
}

// ParsedText is what the line-based parser recognized in OCR text.
type ParsedText struct {
	InvoiceNumber string
	SupplierName  string
	Date          string
	VATRate       float64
	Items         []models.LineItem

	// StatedTotal is the pre-VAT total printed on the invoice, 0 when not found.
	StatedTotal float64
}

// ParseText extracts invoice fields from OCR text.
//
// The supplier is the "Nhà cung cấp:" line when present, else the first line.
// The first d/m/yyyy (or d-m-yyyy) date is the invoice date. A line ending in an
// amount is an item: "Giấy A4   x10   500,000đ" yields quantity 10 and total
// 500000. Amounts keep digits only, so both "," and "." read as thousands
// separators. Items need a positive amount and a name longer than two
// characters.
func ParseText(raw string) ParsedText {
	parsed := ParsedText{VATRate: DefaultVATRate}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return parsed
	}

	parsed.SupplierName = lines[0]
	parsed.Date = datePattern.FindString(raw)
	if m := vatRatePattern.FindStringSubmatch(raw); m != nil {
		if rate, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ".")); err == nil {
			parsed.VATRate = rate.InexactFloat64()
		}
	}

	for _, line := range lines {
		lower := strings.ToLower(line)

		if value, ok := afterPrefix(line, lower, supplierPrefixes); ok && value != "" {
			parsed.SupplierName = value
			continue
		}
		if m := invoiceNumberPattern.FindStringSubmatch(line); m != nil {
			if parsed.InvoiceNumber == "" {
				parsed.InvoiceNumber = m[1]
			}
			continue
		}
		if hasAnyPrefix(lower, totalPrefixes) && parsed.StatedTotal == 0 {
			if m := itemPattern.FindStringSubmatch(line); m != nil {
				parsed.StatedTotal = ParseMoney(m[2])
			}
			continue
		}
		if hasAnyPrefix(lower, skipPrefixes) {
			continue
		}

		if item, ok := parseItemLine(line); ok {
			parsed.Items = append(parsed.Items, item)
		}
	}
	return parsed
}

// Record converts the parsed fields into an invoice record carrying raw.
func (p ParsedText) Record(raw string) models.InvoiceRecord {
	items := p.Items
	if items == nil {
		items = []models.LineItem{}
	}
	return models.InvoiceRecord{
		InvoiceNumber: p.InvoiceNumber,
		SupplierName:  p.SupplierName,
		Date:          p.Date,
		VATRate:       p.VATRate,
		LineItems:     items,
		RawText:       raw,
	}
}

// ParseMoney keeps the digits of text, returning 0 when there are none.
func ParseMoney(text string) float64 {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0
	}
	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return 0
	}
	return amount.InexactFloat64()
}

func parseItemLine(line string) (models.LineItem, bool) {
	m := itemPattern.FindStringSubmatch(line)
	if m == nil {
		return models.LineItem{}, false
	}

	name := strings.TrimSpace(m[1])
	price := ParseMoney(m[2])

	quantity := decimal.NewFromInt(1)
	if q := quantityPattern.FindStringSubmatch(name); q != nil {
		if n, err := decimal.NewFromString(q[2]); err == nil && n.IsPositive() {
			name = strings.TrimSpace(q[1])
			quantity = n
		}
	}

	if price <= 0 || utf8.RuneCountInString(name) <= 2 {
		return models.LineItem{}, false
	}

	total := decimal.NewFromFloat(price)
	return models.LineItem{
		ProductName: name,
		Quantity:    quantity.InexactFloat64(),
		UnitPrice:   total.Div(quantity).Round(2).InexactFloat64(),
		Total:       price,
	}, true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func afterPrefix(line, lower string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

// TextAnalyzer runs OCR on the image and parses the text with ParseText.
type TextAnalyzer struct {
	ocr ocr.Service
	log zerolog.Logger
}

// NewTextAnalyzer returns an analyzer reading text through svc.
func NewTextAnalyzer(svc ocr.Service) *TextAnalyzer {
	return &TextAnalyzer{
		ocr: svc,
		log: logger.WithComponent("text-analyzer"),
	}
}

// Analyze implements Analyzer.
func (a *TextAnalyzer) Analyze(ctx context.Context, filename string, image []byte) (*AnalysisResult, error) {
	const op = "Analyze"

	result, err := a.ocr.ExtractText(ctx, image)
	if err != nil {
		return nil, wrapWithAnalyzer(KindVision, op, err, "text extraction failed")
	}

	parsed := ParseText(result.Text)
	a.log.Info().
		Str("file", filename).
		Str("invoice_number", parsed.InvoiceNumber).
		Str("supplier", parsed.SupplierName).
		Int("items", len(parsed.Items)).
		Float64("stated_total", parsed.StatedTotal).
		Msg("Parsed OCR text")

	confidence := map[string]float32{"text": result.Confidence}
	return Finalize(KindVision, parsed.Record(result.Text), parsed.StatedTotal, confidence), nil
}

// Close closes the OCR service when it holds a client.
func (a *TextAnalyzer) Close() error {
	if c, ok := a.ocr.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
