// Package invoice turns invoice images into reconciled InvoiceRecords and checks
// records before they are saved.
//
// Analyzers:
//   - mock: a fixed sample invoice with a random number, for demos and tests
//   - vision: Google Cloud Vision text detection + a line-based text parser
//   - documentai: Google Document AI invoice parser entities
//   - openai: Vision text + an OpenAI chat completion returning the record as JSON
//
// Required Environment Variables (per analyzer):
//   - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: vision, documentai, openai
//   - GOOGLE_PROJECT_ID, GOOGLE_LOCATION, GOOGLE_PROCESSOR_ID: documentai
//   - OPENAI_API_KEY, OPENAI_MODEL (optional): openai
//
// Every analyzer result passes through reconciliation.Recompute, so line totals
// are kept as recognized but totalAmount and vatAmount always follow the line items.
package invoice

import (
	"context"
	"fmt"
	"io"
	"time"

	"invoicedesk/internal/ocr"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

// Analyzer kinds accepted by NewAnalyzer.
const (
	KindMock       = "mock"
	KindVision     = "vision"
	KindDocumentAI = "documentai"
	KindOpenAI     = "openai"
)

// DefaultVATRate is used when the document does not state a rate.
const DefaultVATRate = 10

// Analyzer extracts an invoice record from an uploaded image.
type Analyzer interface {
	// Analyze recognizes the invoice in image. filename is informational.
	Analyze(ctx context.Context, filename string, image []byte) (*AnalysisResult, error)
}

// AnalysisResult is a reconciled record with analysis metadata.
type AnalysisResult struct {
	Record models.InvoiceRecord `json:"record"`

	// Source is the analyzer kind that produced the record.
	Source string `json:"source"`

	// StatedTotal is the pre-VAT total printed on the document, 0 when none was found.
	StatedTotal float64 `json:"statedTotal,omitempty"`

	// Confidence holds per-field confidence scores (0.0-1.0) where the analyzer reports them.
	Confidence map[string]float32 `json:"confidence,omitempty"`

	Warnings    []string  `json:"warnings,omitempty"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Finalize reconciles rec and cross-checks it against the stated total.
func Finalize(source string, rec models.InvoiceRecord, statedTotal float64, confidence map[string]float32) *AnalysisResult {
	rec = reconciliation.Recompute(rec)
	return &AnalysisResult{
		Record:      rec,
		Source:      source,
		StatedTotal: statedTotal,
		Confidence:  confidence,
		Warnings:    AmountCheck(statedTotal, rec),
		ProcessedAt: time.Now(),
	}
}

// NewAnalyzer creates the analyzer of the given kind with credentials and
// settings from environment. The caller should Close it when done.
func NewAnalyzer(ctx context.Context, kind string) (Analyzer, error) {
	const op = "NewAnalyzer"

	switch kind {
	case "", KindMock:
		return NewMockAnalyzer(), nil
	case KindVision:
		svc, err := ocr.NewVisionService(ctx)
		if err != nil {
			return nil, WrapAnalysisError(op, err, "failed to create Vision service")
		}
		return NewTextAnalyzer(svc), nil
	case KindDocumentAI:
		return NewDocumentAIAnalyzer(ctx)
	case KindOpenAI:
		return NewCompletionAnalyzer(ctx)
	default:
		return nil, WrapAnalysisError(op, ErrUnknownAnalyzer, fmt.Sprintf("%q (use %s, %s, %s or %s)", kind, KindMock, KindVision, KindDocumentAI, KindOpenAI))
	}
}

// Close releases the analyzer's clients, if it holds any.
func Close(a Analyzer) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DocumentAIConfig holds configuration for Google Document AI processing.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where your Document AI processor is created.
	Location string

	// ProcessorID is the Document AI invoice parser processor ID.
	ProcessorID string

	// Timeout is the maximum time to wait for processing.
	// Default: 60 seconds.
	Timeout time.Duration

	// ProcessorVersion specifies a particular processor version.
	// If empty, uses the default version.
	ProcessorVersion string
}

// DefaultConfig returns a DocumentAIConfig with sensible defaults.
func DefaultConfig() DocumentAIConfig {
	return DocumentAIConfig{
		Location: "us",
		Timeout:  60 * time.Second,
	}
}
