package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"invoicedesk/internal/export"
	"invoicedesk/pkg/models"
)

type fakeSheets struct {
	mu        sync.Mutex
	sheets    []string
	header    []any
	appended  [][]any
	inputOpt  string
	batchReqs int
}

func (f *fakeSheets) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path

		switch {
		case r.Method == http.MethodGet && path == "/v4/spreadsheets/sheet-123":
			var sheets []map[string]any
			for i, title := range f.sheets {
				sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title, "sheetId": i}})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-123", "sheets": sheets})

		case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
			f.batchReqs++
			var req struct {
				Requests []struct {
					AddSheet *struct {
						Properties struct {
							Title string `json:"title"`
						} `json:"properties"`
					} `json:"addSheet"`
				} `json:"requests"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if len(req.Requests) > 0 && req.Requests[0].AddSheet != nil {
				title := req.Requests[0].AddSheet.Properties.Title
				f.sheets = append(f.sheets, title)
				_, _ = io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":7,"title":"`+title+`"}}}]}`)
				return
			}
			_, _ = io.WriteString(w, `{"replies":[]}`)

		case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
			f.inputOpt = r.URL.Query().Get("valueInputOption")
			var body struct {
				Values [][]any `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.appended = append(f.appended, body.Values...)
			_, _ = io.WriteString(w, `{}`)

		case r.Method == http.MethodGet && strings.Contains(path, "/values/") && !strings.HasSuffix(path, "1"):
			if f.header == nil {
				_, _ = io.WriteString(w, `{}`)
				return
			}
			rows := [][]any{f.header}
			rows = append(rows, f.appended...)
			_ = json.NewEncoder(w).Encode(map[string]any{"values": rows})

		case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
			if f.header == nil {
				_, _ = io.WriteString(w, `{"range":"Invoices!A1:K1"}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]any{f.header}})

		case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
			var body struct {
				Values [][]any `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if assert.Len(t, body.Values, 1) {
				f.header = body.Values[0]
			}
			_, _ = io.WriteString(w, `{}`)

		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestService(t *testing.T, fake *fakeSheets) *Service {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	svc, err := NewSheetsServiceWithOptions(context.Background(), "sheet-123",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestAppendInvoices(t *testing.T) {
	fake := &fakeSheets{sheets: []string{"Sheet1"}}
	svc := newTestService(t, fake)

	invoices := []models.InvoiceRecord{
		{ID: 1, InvoiceNumber: "HD00123", TotalAmount: 500000, VATAmount: 50000, VATRate: 10},
		{ID: 2, InvoiceNumber: "HD00124", TotalAmount: 100000, VATAmount: 8000, VATRate: 8},
	}
	require.NoError(t, svc.AppendInvoices(context.Background(), "", invoices))

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, []string{"Sheet1", DefaultWorksheet}, fake.sheets)
	require.Len(t, fake.header, len(export.InvoiceHeader))
	assert.Equal(t, "Số hóa đơn", fake.header[1])
	assert.Equal(t, 2, fake.batchReqs) // add sheet, format header
	assert.Equal(t, "USER_ENTERED", fake.inputOpt)
	require.Len(t, fake.appended, 2)
	assert.Equal(t, "HD00124", fake.appended[1][1])
	assert.Equal(t, 108000.0, fake.appended[1][8])
}

func TestAppendInvoicesExistingSheet(t *testing.T) {
	fake := &fakeSheets{sheets: []string{"Invoices"}, header: []any{"ID"}}
	svc := newTestService(t, fake)

	require.NoError(t, svc.AppendInvoices(context.Background(), "Invoices", []models.InvoiceRecord{{ID: 1}}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 0, fake.batchReqs)
	assert.Equal(t, []any{"ID"}, fake.header)
	assert.Len(t, fake.appended, 1)
}

func TestAppendNewInvoicesSkipsExported(t *testing.T) {
	fake := &fakeSheets{
		sheets: []string{"Invoices"},
		header: []any{"ID"},
		appended: [][]any{
			{"1", "HD00123"},
			{"n/a"},
			{""},
		},
	}
	svc := newTestService(t, fake)

	ids, err := svc.ExportedIDs(context.Background(), "Invoices")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, ids)

	written, err := svc.AppendNewInvoices(context.Background(), "Invoices", []models.InvoiceRecord{
		{ID: 1, InvoiceNumber: "HD00123"},
		{ID: 2, InvoiceNumber: "HD00124"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.appended, 4)
	assert.Equal(t, "HD00124", fake.appended[3][1])
}

func TestExportedIDsMissingSheet(t *testing.T) {
	fake := &fakeSheets{sheets: []string{"Sheet1"}}
	svc := newTestService(t, fake)

	ids, err := svc.ExportedIDs(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, ids)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.sheets[1:])
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/sheet")
	assert.Error(t, err)
}

func TestLastColumn(t *testing.T) {
	assert.Equal(t, "K", lastColumn())
}
