package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"invoicedesk/internal/invoice"
	"invoicedesk/pkg/models"
)

// Example analyzes an invoice photo with the analyzer selected by ANALYZER.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	analyzer, err := invoice.NewAnalyzer(ctx, os.Getenv("ANALYZER"))
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}
	defer invoice.Close(analyzer)

	image, err := os.ReadFile("invoice.jpg")
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	result, err := analyzer.Analyze(ctx, "invoice.jpg", image)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	for _, warning := range result.Warnings {
		fmt.Println("warning:", warning)
	}
	fmt.Printf("%s: %d items, total %.0f\n", result.Record.InvoiceNumber, len(result.Record.LineItems), result.Record.TotalAmount)
}

func ExampleValidateForSave() {
	rec := models.InvoiceRecord{SupplierName: "CTY TNHH ABC"}

	var errs invoice.ValidationErrors
	if err := invoice.ValidateForSave(rec); errors.As(err, &errs) {
		for _, fe := range errs {
			fmt.Println(fe.Message)
		}
	}
	// Output:
	// Vui lòng nhập số hóa đơn
	// Vui lòng chọn danh mục sản phẩm
	// Vui lòng thêm ít nhất một sản phẩm
}

func ExampleParseText() {
	parsed := invoice.ParseText("Nhà cung cấp: CTY TNHH ABC\nSố: HD00123\nNgày: 15/3/2024\nGiấy A4   x10   500,000đ")

	fmt.Println(parsed.SupplierName, parsed.InvoiceNumber, parsed.Date)
	for _, item := range parsed.Items {
		fmt.Printf("%s %.0f x %.0f = %.0f\n", item.ProductName, item.Quantity, item.UnitPrice, item.Total)
	}
	// Output:
	// CTY TNHH ABC HD00123 15/3/2024
	// Giấy A4 10 x 50000 = 500000
}
