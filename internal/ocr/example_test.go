package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"invoicedesk/internal/ocr"
)

// Example demonstrates extracting text from an invoice photo.
func Example() {
	// Create context with timeout for OCR processing
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Credentials are read from GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS
	svc, err := ocr.NewVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}
	defer svc.Close()

	image, err := os.ReadFile("invoice.jpg")
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	result, err := svc.ExtractText(ctx, image)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrImageTooLarge):
			log.Printf("Image is too large. Maximum size is 20MB.")
		case errors.Is(err, ocr.ErrInvalidImage):
			log.Printf("The file is not a supported image.")
		case errors.Is(err, ocr.ErrEmptyDocument):
			log.Printf("No readable text found in the image.")
		default:
			log.Fatalf("OCR processing failed: %v", err)
		}
		return
	}

	fmt.Printf("Confidence: %.2f%%\n", result.Confidence*100)
	fmt.Println(result.Text)
}

func ExampleStaticService() {
	svc := ocr.StaticService{Text: "CTY TNHH ABC\nGiấy A4 500,000"}

	result, err := svc.ExtractText(context.Background(), []byte("image"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Text)
	// Output:
	// CTY TNHH ABC
	// Giấy A4 500,000
}
