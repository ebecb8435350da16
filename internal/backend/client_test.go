package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func sampleInvoice() models.InvoiceRecord {
	return models.InvoiceRecord{
		InvoiceNumber:   "HD00123",
		SupplierName:    "CTY TNHH ABC",
		Date:            "2024-03-15",
		ProductCategory: &models.CategoryRef{ID: 2, Name: "Văn phòng phẩm"},
		VATRate:         10,
		VATAmount:       50000,
		TotalAmount:     500000,
		LineItems:       []models.LineItem{{ProductName: "Giấy A4", Quantity: 10, UnitPrice: 50000, Total: 500000}},
	}
}

func TestPersistInvoice(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ocr-invoices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"message":"Success","id":7,"invoiceNumber":"HD00123","totalAmount":500000}`)
	}))
	defer server.Close()

	saved, err := NewClient(server.URL+"/").PersistInvoice(context.Background(), sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, &models.SavedInvoice{Message: "Success", ID: 7, InvoiceNumber: "HD00123", TotalAmount: 500000}, saved)

	assert.Equal(t, "HD00123", received["invoiceNumber"])
	assert.Equal(t, 50000.0, received["vatAmount"])
	assert.Equal(t, map[string]any{"id": 2.0, "name": "Văn phòng phẩm"}, received["productCategory"])
	assert.Len(t, received["lineItems"], 1)
}

func TestBackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{name: "string detail", status: 400, body: `{"detail":"Số hóa đơn là bắt buộc"}`, expected: "Số hóa đơn là bắt buộc"},
		{name: "structured detail", status: 422, body: `{"detail": [ {"loc": ["body","date"], "msg": "bad"} ]}`, expected: `[{"loc":["body","date"],"msg":"bad"}]`},
		{name: "no detail", status: 500, body: `{"error":"boom"}`, expected: MsgPersistFailed},
		{name: "empty detail", status: 500, body: `{"detail":""}`, expected: MsgPersistFailed},
		{name: "null detail", status: 500, body: `{"detail":null}`, expected: MsgPersistFailed},
		{name: "not json", status: 502, body: `<html>Bad Gateway</html>`, expected: MsgPersistFailed},
		{name: "empty body", status: 503, body: ``, expected: MsgPersistFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).PersistInvoice(context.Background(), sampleInvoice())
			require.Error(t, err)

			var berr *BackendError
			require.ErrorAs(t, err, &berr)
			assert.Equal(t, tt.status, berr.StatusCode)
			assert.Equal(t, tt.expected, berr.Message)
			assert.Equal(t, "PersistInvoice", berr.Op)

			assert.True(t, errors.Is(err, &BackendError{}))
			assert.True(t, errors.Is(err, &BackendError{StatusCode: tt.status}))
			assert.False(t, errors.Is(err, &BackendError{StatusCode: 418}))
		})
	}
}

func TestAnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze-invoice", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		assert.NoError(t, err)

		assert.Equal(t, "invoice.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))

		rec := sampleInvoice()
		rec.RawText = "HÓA ĐƠN"
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer server.Close()

	rec, err := NewClient(server.URL).AnalyzeImage(context.Background(), "/tmp/scans/invoice.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "HD00123", rec.InvoiceNumber)
	assert.Equal(t, "HÓA ĐƠN", rec.RawText)
	require.Len(t, rec.LineItems, 1)
}

func TestFetchCategories(t *testing.T) {
	categories := []models.Category{{ID: 1, Name: "Thực phẩm & Đồ uống", Description: "Thực phẩm, đồ uống"}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/categories", "/productCategories.json":
			_ = json.NewEncoder(w).Encode(categories)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	got, err := NewClient(server.URL).FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, categories, got)

	got, err = NewStaticCategories(server.URL + "/productCategories.json").FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, categories, got)

	_, err = NewStaticCategories(server.URL + "/missing.json").FetchCategories(context.Background())
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusNotFound, berr.StatusCode)
	assert.Equal(t, MsgCategoriesFailed, berr.Message)
}

func TestContextBoundsRequest(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).FetchCategories(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").BaseURL())
	assert.Equal(t, "http://api.local", NewClient("http://api.local///").BaseURL())
}
