package server

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Column limits of the invoice tables.
const (
	maxInvoiceNumberLen = 100
	maxNameLen          = 500
	maxDateLen          = 100
)

// amount is a non-negative whole number decoded leniently: strings keep only
// their digits ("1.250.000 đ" is 1250000), negatives and anything else
// non-numeric become 0.
type amount int64

// UnmarshalJSON implements json.Unmarshaler.
func (a *amount) UnmarshalJSON(data []byte) error {
	*a = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, text)
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			*a = amount(n)
		}
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		if number > 0 && number < math.MaxInt64 {
			*a = amount(number)
		}
	}
	return nil
}

// categoryID is a positive id, or nil for anything else.
type categoryID struct {
	ID *uint
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *categoryID) UnmarshalJSON(data []byte) error {
	c.ID = nil
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var n int64
	switch v := raw.(type) {
	case float64:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if n > 0 {
		id := uint(n)
		c.ID = &id
	}
	return nil
}

// ocrInvoiceRequest is the body of POST /ocr-invoices, an InvoiceRecord.
type ocrInvoiceRequest struct {
	InvoiceNumber   string `json:"invoiceNumber"`
	SupplierName    string `json:"supplierName"`
	Date            string `json:"date"`
	TotalAmount     amount `json:"totalAmount"`
	VATRate         amount `json:"vatRate"`
	VATAmount       amount `json:"vatAmount"`
	ProductCategory *struct {
		ID   categoryID `json:"id"`
		Name string     `json:"name"`
	} `json:"productCategory"`
	LineItems []lineItemRequest `json:"lineItems"`
	RawText   string            `json:"rawText"`
}

type lineItemRequest struct {
	ProductName string `json:"productName"`
	Quantity    amount `json:"quantity"`
	UnitPrice   amount `json:"unitPrice"`
	Total       amount `json:"total"`
}

// receiptRequest is the body of POST /invoices: a store receipt as parsed
// from OCR text.
type receiptRequest struct {
	MerchantName *string       `json:"merchant_name"`
	Date         *string       `json:"date"`
	TotalAmount  amount        `json:"total_amount"`
	Items        []receiptItem `json:"items"`
	RawText      *string       `json:"raw_text"`
}

type receiptItem struct {
	Name       *string    `json:"name"`
	Price      amount     `json:"price"`
	CategoryID categoryID `json:"category_id"`
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
