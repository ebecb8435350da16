package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/ocr"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is not set.
const DefaultOpenAIModel = openai.GPT4oMini

// CompletionConfig configures the OpenAI completion analyzer.
type CompletionConfig struct {
	Model       string  // e.g. gpt-4o-mini
	Temperature float32 // ChatGPT temperature
	MaxRetries  int     // attempts before giving up
	MaxTokens   int
}

// CompletionAnalyzer reads the image text through OCR and asks an OpenAI chat
// model to structure it as an invoice record.
type CompletionAnalyzer struct {
	ocr    ocr.Service
	client *openai.Client
	config CompletionConfig
	log    zerolog.Logger
}

// completionResponse is the JSON object the model is asked to return.
type completionResponse struct {
	InvoiceNumber string           `json:"invoiceNumber"`
	SupplierName  string           `json:"supplierName"`
	Date          string           `json:"date"`
	VATRate       any              `json:"vatRate"`
	StatedTotal   any              `json:"statedTotal"`
	LineItems     []completionItem `json:"lineItems"`
}

type completionItem struct {
	ProductName string `json:"productName"`
	Quantity    any    `json:"quantity"`
	UnitPrice   any    `json:"unitPrice"`
	Total       any    `json:"total"`
}

var errIncompleteResponse = errors.New("response has neither invoice number nor line items")

// NewCompletionAnalyzer creates the analyzer with Vision OCR and an OpenAI client
// configured from environment.
func NewCompletionAnalyzer(ctx context.Context) (*CompletionAnalyzer, error) {
	const op = "NewCompletionAnalyzer"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, wrapWithAnalyzer(KindOpenAI, op, ErrMissingCredentials, "OPENAI_API_KEY environment variable is required")
	}

	ocrService, err := ocr.NewVisionService(ctx)
	if err != nil {
		return nil, wrapWithAnalyzer(KindOpenAI, op, err, "failed to create OCR service")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = DefaultOpenAIModel
	}

	config := CompletionConfig{
		Model:       model,
		Temperature: parseFloatEnv("OPENAI_TEMPERATURE", 0.1),
		MaxRetries:  parseIntEnv("COMPLETION_MAX_RETRIES", 3),
		MaxTokens:   1500,
	}

	return NewCompletionAnalyzerWithDeps(ocrService, openai.NewClient(apiKey), config), nil
}

// NewCompletionAnalyzerWithDeps creates the analyzer with explicit dependencies.
func NewCompletionAnalyzerWithDeps(ocrService ocr.Service, client *openai.Client, config CompletionConfig) *CompletionAnalyzer {
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	return &CompletionAnalyzer{
		ocr:    ocrService,
		client: client,
		config: config,
		log:    logger.WithComponent("invoice-completion"),
	}
}

// Analyze implements Analyzer.
func (a *CompletionAnalyzer) Analyze(ctx context.Context, filename string, image []byte) (*AnalysisResult, error) {
	const op = "Analyze"

	text, err := a.ocr.ExtractText(ctx, image)
	if err != nil {
		return nil, wrapWithAnalyzer(KindOpenAI, op, err, "text extraction failed")
	}

	a.log.Info().
		Str("file", filename).
		Int("ocr_chars", len(text.Text)).
		Msg("Starting invoice completion")

	resp, err := a.complete(ctx, text.Text)
	if err != nil {
		return nil, wrapWithAnalyzer(KindOpenAI, op, ErrAnalysisFailed, err.Error())
	}

	rec := resp.record(text.Text)
	confidence := map[string]float32{"text": text.Confidence}
	return Finalize(KindOpenAI, rec, reconciliation.CoerceNumberOrZero(resp.StatedTotal), confidence), nil
}

// complete asks the model to structure ocrText, retrying on transport errors and
// unusable answers.
func (a *CompletionAnalyzer) complete(ctx context.Context, ocrText string) (*completionResponse, error) {
	prompt := buildCompletionPrompt(ocrText)

	a.log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", a.config.Model).
		Float32("temperature", a.config.Temperature).
		Msg("Sending completion request to ChatGPT")

	var lastErr error
	for attempt := 1; attempt <= a.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.config.Model,
			Temperature: a.config.Temperature,
			MaxTokens:   a.config.MaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			a.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", a.config.MaxRetries).
				Msg("ChatGPT request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from ChatGPT")
			continue
		}

		content := resp.Choices[0].Message.Content
		parsed, err := parseCompletion(content)
		if err != nil {
			lastErr = err
			a.log.Warn().
				Err(err).
				Str("response", content).
				Int("attempt", attempt).
				Msg("Unusable ChatGPT response, retrying")
			continue
		}

		a.log.Info().
			Str("invoice_number", parsed.InvoiceNumber).
			Int("line_items", len(parsed.LineItems)).
			Int("attempt", attempt).
			Msg("Successfully extracted invoice data from ChatGPT")
		return parsed, nil
	}

	return nil, fmt.Errorf("all %d attempts failed, last error: %w", a.config.MaxRetries, lastErr)
}

// Close closes the OCR service when it holds a client.
func (a *CompletionAnalyzer) Close() error {
	if c, ok := a.ocr.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func parseCompletion(content string) (*completionResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var resp completionResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse ChatGPT JSON response: %w", err)
	}
	if strings.TrimSpace(resp.InvoiceNumber) == "" && len(resp.LineItems) == 0 {
		return nil, errIncompleteResponse
	}
	return &resp, nil
}

func (r *completionResponse) record(rawText string) models.InvoiceRecord {
	rec := models.InvoiceRecord{
		InvoiceNumber: strings.TrimSpace(r.InvoiceNumber),
		SupplierName:  strings.TrimSpace(r.SupplierName),
		Date:          strings.TrimSpace(r.Date),
		VATRate:       DefaultVATRate,
		LineItems:     make([]models.LineItem, 0, len(r.LineItems)),
		RawText:       rawText,
	}
	if r.VATRate != nil {
		rec.VATRate = reconciliation.CoerceNumberOrZero(r.VATRate)
	}

	for _, item := range r.LineItems {
		line := models.LineItem{
			ProductName: strings.TrimSpace(item.ProductName),
			Quantity:    reconciliation.CoerceNumberOrZero(item.Quantity),
			UnitPrice:   reconciliation.CoerceNumberOrZero(item.UnitPrice),
			Total:       reconciliation.CoerceNumberOrZero(item.Total),
		}
		if line.Quantity == 0 {
			line.Quantity = 1
		}
		if line.Total == 0 {
			line.Total = reconciliation.LineTotal(line.Quantity, line.UnitPrice)
		}
		rec.LineItems = append(rec.LineItems, line)
	}
	return rec
}

const systemPrompt = `You extract structured data from Vietnamese sales invoices (hóa đơn bán hàng / hóa đơn GTGT).

Return ONLY a JSON object with these fields:
{
  "invoiceNumber": "invoice number (Số / Số hóa đơn), string",
  "supplierName": "seller company name (Đơn vị bán hàng / Nhà cung cấp), string",
  "date": "invoice date as YYYY-MM-DD, string",
  "vatRate": "VAT rate in percent (Thuế suất GTGT), number, e.g. 10",
  "statedTotal": "total before VAT (Cộng tiền hàng / Tổng cộng), number",
  "lineItems": [
    {"productName": "string", "quantity": number, "unitPrice": number, "total": number}
  ]
}

Rules:
- Amounts are in VND. "12.500.000" and "12,500,000" both mean 12500000. Write plain numbers without separators.
- Use null for values that are not on the invoice.
- Do not invent line items that are not printed on the invoice.`

func buildCompletionPrompt(ocrText string) string {
	var prompt strings.Builder
	prompt.WriteString("Extract the invoice from this OCR text:\n\n")
	prompt.WriteString(ocrText)
	return prompt.String()
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
