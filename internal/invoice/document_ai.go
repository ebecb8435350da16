package invoice

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/ocr"
	"invoicedesk/pkg/models"
)

// DocumentAIAnalyzer implements Analyzer using the Google Document AI invoice parser.
type DocumentAIAnalyzer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIAnalyzer creates an analyzer with settings from environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: GOOGLE_PROJECT_ID (or GOOGLE_CLOUD_PROJECT), GOOGLE_PROCESSOR_ID
// Optional: GOOGLE_LOCATION (default "us")
func NewDocumentAIAnalyzer(ctx context.Context) (*DocumentAIAnalyzer, error) {
	const op = "NewDocumentAIAnalyzer"

	config := DefaultConfig()
	config.ProjectID = getEnvVar("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	config.ProcessorID = getEnvVar("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID")
	if location := getEnvVar("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION"); location != "" {
		config.Location = location
	}

	if config.ProjectID == "" {
		return nil, wrapWithAnalyzer(KindDocumentAI, op, ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, wrapWithAnalyzer(KindDocumentAI, op, ErrInvalidConfiguration, "GOOGLE_PROCESSOR_ID is required")
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		clientOptions = append(clientOptions, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}

	hasCredentials := false
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
		hasCredentials = true
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
		hasCredentials = true
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if !hasCredentials {
			return nil, wrapWithAnalyzer(KindDocumentAI, op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, wrapWithAnalyzer(KindDocumentAI, op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewDocumentAIAnalyzerWithClient(config, client), nil
}

// NewDocumentAIAnalyzerWithClient creates an analyzer with explicit config and client.
func NewDocumentAIAnalyzerWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIAnalyzer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &DocumentAIAnalyzer{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// Analyze implements Analyzer.
func (a *DocumentAIAnalyzer) Analyze(ctx context.Context, filename string, image []byte) (*AnalysisResult, error) {
	const op = "Analyze"

	prepared, err := ocr.PrepareImage(image)
	if err != nil {
		return nil, wrapWithAnalyzer(KindDocumentAI, op, err, "invalid image")
	}

	processCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: a.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  prepared,
				MimeType: "image/png",
			},
		},
	}

	a.log.Debug().
		Str("file", filename).
		Str("processor", req.Name).
		Int("bytes", len(prepared)).
		Msg("Sending image to Document AI")

	resp, err := a.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, a.processingError(op, err)
	}
	if resp.Document == nil {
		return nil, wrapWithAnalyzer(KindDocumentAI, op, ErrAnalysisFailed, "no document in response")
	}

	rec, statedTotal, confidence := a.extractRecord(resp.Document)
	if rec.InvoiceNumber == "" && len(rec.LineItems) == 0 && rec.SupplierName == "" {
		return nil, wrapWithAnalyzer(KindDocumentAI, op, ErrEmptyDocument, "no invoice fields recognized")
	}

	return Finalize(KindDocumentAI, rec, statedTotal, confidence), nil
}

// processorName constructs the full processor resource name.
func (a *DocumentAIAnalyzer) processorName() string {
	if a.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			a.config.ProjectID, a.config.Location, a.config.ProcessorID, a.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		a.config.ProjectID, a.config.Location, a.config.ProcessorID)
}

// processingError maps Document AI status codes to analysis errors.
func (a *DocumentAIAnalyzer) processingError(op string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case codes.ResourceExhausted:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case codes.NotFound:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", a.config.ProcessorID))
	case codes.InvalidArgument:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrUnsupportedImage, "document format not supported or corrupted")
	case codes.DeadlineExceeded:
		return wrapWithAnalyzer(KindDocumentAI, op, context.DeadlineExceeded, "processing timeout")
	case codes.Canceled:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrContextCanceled, "processing was canceled")
	default:
		return wrapWithAnalyzer(KindDocumentAI, op, ErrAnalysisFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// extractRecord converts Document AI entities to an invoice record, the stated
// pre-VAT total and per-entity confidence.
func (a *DocumentAIAnalyzer) extractRecord(doc *documentaipb.Document) (models.InvoiceRecord, float64, map[string]float32) {
	rec := models.InvoiceRecord{
		VATRate:   DefaultVATRate,
		LineItems: []models.LineItem{},
		RawText:   doc.Text,
	}
	confidence := make(map[string]float32)

	var netAmount, taxAmount, grossAmount float64
	rateFound := false

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)
		if entity.Type != "line_item" {
			confidence[entity.Type] = entity.Confidence
		}

		a.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "invoice_id", "invoice_number":
			rec.InvoiceNumber = value
		case "supplier_name", "vendor_name":
			rec.SupplierName = value
		case "invoice_date":
			rec.Date = entityDate(entity)
		case "net_amount", "subtotal_amount":
			netAmount = entityMoney(entity)
		case "total_tax_amount", "vat_amount":
			taxAmount = entityMoney(entity)
		case "total_amount", "gross_amount":
			grossAmount = entityMoney(entity)
		case "vat":
			for _, prop := range entity.Properties {
				if prop.Type == "vat/tax_rate" {
					if rate, ok := parseRate(prop.MentionText); ok {
						rec.VATRate = rate
						rateFound = true
					}
				}
			}
		case "line_item":
			if item, ok := lineItemFromEntity(entity); ok {
				rec.LineItems = append(rec.LineItems, item)
			}
		}
	}

	if !rateFound && netAmount > 0 && taxAmount > 0 {
		rate := decimal.NewFromFloat(taxAmount).Div(decimal.NewFromFloat(netAmount)).Mul(decimal.NewFromInt(100)).Round(2)
		rec.VATRate = rate.InexactFloat64()
	}

	// The parser often misses Vietnamese labels; fall back to the line-based parser.
	if rec.InvoiceNumber == "" || len(rec.LineItems) == 0 {
		parsed := ParseText(doc.Text)
		if rec.InvoiceNumber == "" && parsed.InvoiceNumber != "" {
			rec.InvoiceNumber = parsed.InvoiceNumber
			confidence["invoice_number_fallback"] = 0.6
		}
		if len(rec.LineItems) == 0 && len(parsed.Items) > 0 {
			rec.LineItems = parsed.Items
			confidence["line_item_fallback"] = 0.5
		}
	}

	statedTotal := netAmount
	if statedTotal == 0 && grossAmount > 0 {
		statedTotal = grossAmount - taxAmount
	}

	a.log.Info().
		Str("invoice_number", rec.InvoiceNumber).
		Str("supplier", rec.SupplierName).
		Int("line_items", len(rec.LineItems)).
		Float64("net_amount", netAmount).
		Float64("tax_amount", taxAmount).
		Float64("gross_amount", grossAmount).
		Msg("Document AI extraction completed")

	return rec, statedTotal, confidence
}

// Close closes the underlying Document AI client.
func (a *DocumentAIAnalyzer) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func lineItemFromEntity(entity *documentaipb.Document_Entity) (models.LineItem, bool) {
	item := models.LineItem{Quantity: 1}
	hasAmount := false

	for _, prop := range entity.Properties {
		value := strings.TrimSpace(prop.MentionText)
		switch prop.Type {
		case "line_item/description":
			item.ProductName = value
		case "line_item/quantity":
			if q, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ".")); err == nil && q.IsPositive() {
				item.Quantity = q.InexactFloat64()
			}
		case "line_item/unit_price":
			item.UnitPrice = entityMoney(prop)
		case "line_item/amount":
			item.Total = entityMoney(prop)
			hasAmount = true
		}
	}

	if item.ProductName == "" {
		item.ProductName = strings.TrimSpace(entity.MentionText)
	}
	if !hasAmount {
		item.Total = decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.UnitPrice)).InexactFloat64()
	}
	if item.UnitPrice == 0 && item.Total > 0 {
		item.UnitPrice = decimal.NewFromFloat(item.Total).Div(decimal.NewFromFloat(item.Quantity)).Round(2).InexactFloat64()
	}
	return item, item.ProductName != "" || item.Total > 0
}

// entityMoney reads the normalized money value, falling back to the digits of
// the mention text.
func entityMoney(entity *documentaipb.Document_Entity) float64 {
	if entity.NormalizedValue != nil {
		if money := entity.NormalizedValue.GetMoneyValue(); money != nil {
			return decimal.New(money.Units, 0).Add(decimal.New(int64(money.Nanos), -9)).InexactFloat64()
		}
	}
	return ParseMoney(entity.MentionText)
}

// entityDate formats a normalized date as YYYY-MM-DD, else returns the mention text.
func entityDate(entity *documentaipb.Document_Entity) string {
	if entity.NormalizedValue != nil {
		if d := entity.NormalizedValue.GetDateValue(); d != nil && d.Year > 0 {
			return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
	}
	return strings.TrimSpace(entity.MentionText)
}

func parseRate(text string) (float64, bool) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	rate, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
	if err != nil || rate.IsNegative() {
		return 0, false
	}
	return rate.InexactFloat64(), true
}

// getEnvVar returns the first non-empty environment variable of names.
func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
