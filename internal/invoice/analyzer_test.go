package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/date"
	"google.golang.org/genproto/googleapis/type/money"

	"invoicedesk/internal/ocr"
	"invoicedesk/pkg/models"
)

const sampleText = `HÓA ĐƠN BÁN HÀNG
Số: HD00123
Ngày: 15/3/2024
Nhà cung cấp: CTY TNHH ABC
Địa chỉ: 123 Đường ABC, Quận 1, TP.HCM
Điện thoại: 0901234567

Máy in HP LaserJet    x1    12,500,000đ
Giấy A4               x10   500,000đ
Bút bi: 30.000

Tổng cộng: 13,030,000đ
Thuế VAT 8%: 1,042,400đ
Thành tiền: 14,072,400đ`

func TestParseText(t *testing.T) {
	parsed := ParseText(sampleText)

	assert.Equal(t, "HD00123", parsed.InvoiceNumber)
	assert.Equal(t, "CTY TNHH ABC", parsed.SupplierName)
	assert.Equal(t, "15/3/2024", parsed.Date)
	assert.Equal(t, 8.0, parsed.VATRate)
	assert.Equal(t, 13030000.0, parsed.StatedTotal)
	assert.Equal(t, []models.LineItem{
		{ProductName: "Máy in HP LaserJet", Quantity: 1, UnitPrice: 12500000, Total: 12500000},
		{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000},
		{ProductName: "Bút bi", Quantity: 1, UnitPrice: 30000, Total: 30000},
	}, parsed.Items)
}

func TestParseTextEdgeCases(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		parsed := ParseText(" \r\n \n")
		assert.Empty(t, parsed.SupplierName)
		assert.Empty(t, parsed.Items)
		assert.Equal(t, float64(DefaultVATRate), parsed.VATRate)

		rec := parsed.Record("")
		assert.NotNil(t, rec.LineItems)
	})

	t.Run("first line is supplier without label", func(t *testing.T) {
		parsed := ParseText("SIÊU THỊ MINI 24H\r\nNgày 01-02-2024\r\nSữa tươi 32,000\r\nAB 5,000\r\nKẹo 0")
		assert.Equal(t, "SIÊU THỊ MINI 24H", parsed.SupplierName)
		assert.Equal(t, "01-02-2024", parsed.Date)
		require.Len(t, parsed.Items, 1)
		assert.Equal(t, "Sữa tươi", parsed.Items[0].ProductName)
		assert.Equal(t, 32000.0, parsed.Items[0].Total)
	})
}

func TestParseMoney(t *testing.T) {
	assert.Equal(t, 12500000.0, ParseMoney("12,500,000đ"))
	assert.Equal(t, 12500000.0, ParseMoney("12.500.000"))
	assert.Equal(t, 0.0, ParseMoney("không"))
	assert.Equal(t, 0.0, ParseMoney(""))
}

func TestMockAnalyzer(t *testing.T) {
	day := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)
	analyzer := NewMockAnalyzer().
		WithClock(func() time.Time { return day }).
		WithNumberSource(func(n int) int { return 42 })

	result, err := analyzer.Analyze(context.Background(), "scan.jpg", nil)
	require.NoError(t, err)

	rec := result.Record
	assert.Equal(t, KindMock, result.Source)
	assert.Equal(t, "HD00042", rec.InvoiceNumber)
	assert.Equal(t, MockSupplier, rec.SupplierName)
	assert.Equal(t, "2024-03-05", rec.Date)
	assert.Nil(t, rec.ProductCategory)
	assert.Equal(t, 10.0, rec.VATRate)
	assert.Equal(t, 13000000.0, rec.TotalAmount)
	assert.Equal(t, 1300000.0, rec.VATAmount)
	assert.Len(t, rec.LineItems, 2)
	assert.Contains(t, rec.RawText, "Ngày: 5/3/2024")
	assert.Empty(t, result.Warnings)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = analyzer.Analyze(ctx, "scan.jpg", nil)
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestMockRawTextParsesBack(t *testing.T) {
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	parsed := ParseText(mockRawText(day))

	assert.Equal(t, "HD00123", parsed.InvoiceNumber)
	assert.Equal(t, MockSupplier, parsed.SupplierName)
	assert.Equal(t, "15/3/2024", parsed.Date)
	assert.Equal(t, 13000000.0, parsed.StatedTotal)
	assert.Len(t, parsed.Items, 2)
}

func TestTextAnalyzer(t *testing.T) {
	analyzer := NewTextAnalyzer(ocr.StaticService{Text: sampleText})

	result, err := analyzer.Analyze(context.Background(), "scan.png", []byte("image"))
	require.NoError(t, err)

	rec := result.Record
	assert.Equal(t, KindVision, result.Source)
	assert.Equal(t, "HD00123", rec.InvoiceNumber)
	assert.Equal(t, 13030000.0, rec.TotalAmount)
	assert.Equal(t, 1042400.0, rec.VATAmount)
	assert.Equal(t, sampleText, rec.RawText)
	assert.Equal(t, 13030000.0, result.StatedTotal)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, float32(1), result.Confidence["text"])
	assert.NoError(t, analyzer.Close())

	_, err = analyzer.Analyze(context.Background(), "scan.png", nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindVision, analysisErr.Analyzer)
}

func moneyEntity(kind string, units int64) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{
		Type:       kind,
		Confidence: 0.9,
		NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
			StructuredValue: &documentaipb.Document_Entity_NormalizedValue_MoneyValue{
				MoneyValue: &money.Money{CurrencyCode: "VND", Units: units},
			},
		},
	}
}

func TestDocumentAIExtractRecord(t *testing.T) {
	analyzer := NewDocumentAIAnalyzerWithClient(DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "abc"}, nil)
	assert.Equal(t, "projects/p/locations/eu/processors/abc", analyzer.processorName())

	doc := &documentaipb.Document{
		Text: "HÓA ĐƠN GTGT",
		Entities: []*documentaipb.Document_Entity{
			{Type: "invoice_id", MentionText: " 0000123 ", Confidence: 0.95},
			{Type: "supplier_name", MentionText: "CÔNG TY CP XYZ", Confidence: 0.9},
			{
				Type:        "invoice_date",
				MentionText: "Ngày 15 tháng 03 năm 2024",
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					StructuredValue: &documentaipb.Document_Entity_NormalizedValue_DateValue{
						DateValue: &date.Date{Year: 2024, Month: 3, Day: 15},
					},
				},
			},
			moneyEntity("net_amount", 1000000),
			moneyEntity("total_tax_amount", 80000),
			moneyEntity("total_amount", 1080000),
			{
				Type:        "line_item",
				MentionText: "Giấy A4 10 100.000 1.000.000",
				Properties: []*documentaipb.Document_Entity{
					{Type: "line_item/description", MentionText: "Giấy A4"},
					{Type: "line_item/quantity", MentionText: "10"},
					{Type: "line_item/amount", MentionText: "1.000.000"},
				},
			},
		},
	}

	rec, stated, confidence := analyzer.extractRecord(doc)

	assert.Equal(t, "0000123", rec.InvoiceNumber)
	assert.Equal(t, "CÔNG TY CP XYZ", rec.SupplierName)
	assert.Equal(t, "2024-03-15", rec.Date)
	assert.Equal(t, 8.0, rec.VATRate)
	assert.Equal(t, 1000000.0, stated)
	assert.Equal(t, []models.LineItem{{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 100000, Total: 1000000}}, rec.LineItems)
	assert.Equal(t, float32(0.95), confidence["invoice_id"])
	assert.NotContains(t, confidence, "line_item")

	result := Finalize(KindDocumentAI, rec, stated, confidence)
	assert.Equal(t, 1000000.0, result.Record.TotalAmount)
	assert.Equal(t, 80000.0, result.Record.VATAmount)
	assert.Empty(t, result.Warnings)
}

func TestDocumentAIFallsBackToText(t *testing.T) {
	analyzer := NewDocumentAIAnalyzerWithClient(DocumentAIConfig{}, nil)

	doc := &documentaipb.Document{
		Text: sampleText,
		Entities: []*documentaipb.Document_Entity{
			{Type: "vat", Properties: []*documentaipb.Document_Entity{{Type: "vat/tax_rate", MentionText: "5%"}}},
		},
	}

	rec, _, confidence := analyzer.extractRecord(doc)
	assert.Equal(t, "HD00123", rec.InvoiceNumber)
	assert.Len(t, rec.LineItems, 3)
	assert.Equal(t, 5.0, rec.VATRate)
	assert.Contains(t, confidence, "invoice_number_fallback")
	assert.Contains(t, confidence, "line_item_fallback")
}

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return openai.NewClientWithConfig(config)
}

func TestCompletionAnalyzer(t *testing.T) {
	var calls atomic.Int32
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "HD00123")

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, chatCompletion("not json"))
			return
		}
		_, _ = io.WriteString(w, chatCompletion(`{
			"invoiceNumber": "HD00123",
			"supplierName": "CTY TNHH ABC",
			"date": "2024-03-15",
			"vatRate": null,
			"statedTotal": 13000000,
			"lineItems": [
				{"productName": "Máy in HP LaserJet", "quantity": 1, "unitPrice": 12500000, "total": 12500000},
				{"productName": "Giấy A4", "quantity": "10", "unitPrice": 50000, "total": null}
			]
		}`))
	})

	analyzer := NewCompletionAnalyzerWithDeps(ocr.StaticService{Text: sampleText}, client, CompletionConfig{MaxRetries: 3})

	result, err := analyzer.Analyze(context.Background(), "scan.png", []byte("image"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	rec := result.Record
	assert.Equal(t, KindOpenAI, result.Source)
	assert.Equal(t, "HD00123", rec.InvoiceNumber)
	assert.Equal(t, 10.0, rec.VATRate)
	assert.Equal(t, 500000.0, rec.LineItems[1].Total)
	assert.Equal(t, 13000000.0, rec.TotalAmount)
	assert.Equal(t, 1300000.0, rec.VATAmount)
	assert.Empty(t, result.Warnings)
}

func TestCompletionAnalyzerGivesUp(t *testing.T) {
	var calls atomic.Int32
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(`{"supplierName": "CTY TNHH ABC"}`))
	})

	analyzer := NewCompletionAnalyzerWithDeps(ocr.StaticService{Text: sampleText}, client, CompletionConfig{MaxRetries: 2})

	_, err := analyzer.Analyze(context.Background(), "scan.png", []byte("image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewAnalyzer(t *testing.T) {
	a, err := NewAnalyzer(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, &MockAnalyzer{}, a)
	assert.NoError(t, Close(a))

	_, err = NewAnalyzer(context.Background(), "tesseract")
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)
}

func TestAnalysisError(t *testing.T) {
	err := wrapWithAnalyzer(KindDocumentAI, "Analyze", ErrQuotaExceeded, "Document AI API quota exceeded")
	assert.Equal(t, "invoice: Analyze (documentai) failed: Document AI API quota exceeded: API quota exceeded", err.Error())
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Same(t, err, WrapAnalysisError("Other", err, ""))
	assert.NoError(t, WrapAnalysisError("Other", nil, ""))
}
