package invoice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// MockSupplier is the supplier of every mock invoice.
const MockSupplier = "CTY TNHH ABC"

// MockAnalyzer returns a fixed sample invoice with a random HD##### number and
// today's date. It ignores the image.
type MockAnalyzer struct {
	now  func() time.Time
	intn func(n int) int
	log  zerolog.Logger
}

// NewMockAnalyzer returns a MockAnalyzer using the wall clock and a random number.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		now:  time.Now,
		intn: rand.IntN,
		log:  logger.WithComponent("mock-analyzer"),
	}
}

// WithClock sets the clock used for the invoice date.
func (m *MockAnalyzer) WithClock(now func() time.Time) *MockAnalyzer {
	m.now = now
	return m
}

// WithNumberSource sets the source of invoice numbers; intn returns a value in [0, n).
func (m *MockAnalyzer) WithNumberSource(intn func(n int) int) *MockAnalyzer {
	m.intn = intn
	return m
}

// Analyze implements Analyzer.
func (m *MockAnalyzer) Analyze(ctx context.Context, filename string, image []byte) (*AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapWithAnalyzer(KindMock, "Analyze", ErrContextCanceled, err.Error())
	}

	today := m.now()
	rec := models.InvoiceRecord{
		InvoiceNumber: fmt.Sprintf("HD%05d", m.intn(10000)),
		SupplierName:  MockSupplier,
		Date:          today.Format("2006-01-02"),
		VATRate:       DefaultVATRate,
		LineItems: []models.LineItem{
			{ProductName: "Máy in HP LaserJet", Quantity: 1, UnitPrice: 12500000, Total: 12500000},
			{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000},
		},
		RawText: mockRawText(today),
	}

	m.log.Info().
		Str("file", filename).
		Int("bytes", len(image)).
		Str("invoice_number", rec.InvoiceNumber).
		Msg("Mock analysis")

	return Finalize(KindMock, rec, 0, nil), nil
}

func mockRawText(day time.Time) string {
	return fmt.Sprintf(`HÓA ĐƠN BÁN HÀNG
Số: HD00123
Ngày: %d/%d/%d
Nhà cung cấp: CTY TNHH ABC
Địa chỉ: 123 Đường ABC, Quận 1, TP.HCM

Máy in HP LaserJet    x1    12,500,000đ
Giấy A4               x10   500,000đ

Tổng cộng: 13,000,000đ
Thuế VAT: 0đ
Thành tiền: 13,000,000đ`, day.Day(), int(day.Month()), day.Year())
}
