// Package backend is the HTTP client for the invoice back-end service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// DefaultBaseURL is the address of a locally running back-end.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the back-end. It sets no timeout of its own; callers bound
// each call through the context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a client for the back-end at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        logger.WithComponent("backend-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the back-end address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnalyzeImage uploads an invoice image to POST /analyze-invoice and returns the
// extracted record.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, r io.Reader) (*models.InvoiceRecord, error) {
	const op = "AnalyzeImage"

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build form: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("%s: failed to read image: %w", op, err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%s: failed to build form: %w", op, err)
	}

	c.log.Info().Str("file", filename).Int("bytes", body.Len()).Msg("Uploading invoice image")

	var rec models.InvoiceRecord
	if err := c.do(ctx, op, http.MethodPost, c.baseURL+"/analyze-invoice", form.FormDataContentType(), &body, MsgAnalyzeFailed, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PersistInvoice sends rec verbatim to POST /ocr-invoices.
func (c *Client) PersistInvoice(ctx context.Context, rec models.InvoiceRecord) (*models.SavedInvoice, error) {
	const op = "PersistInvoice"

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode invoice: %w", op, err)
	}

	var saved models.SavedInvoice
	if err := c.do(ctx, op, http.MethodPost, c.baseURL+"/ocr-invoices", "application/json", bytes.NewReader(payload), MsgPersistFailed, &saved); err != nil {
		return nil, err
	}

	c.log.Info().
		Int("id", saved.ID).
		Str("invoice_number", saved.InvoiceNumber).
		Float64("total_amount", saved.TotalAmount).
		Msg("Invoice persisted")
	return &saved, nil
}

// FetchCategories returns GET /categories. It implements catalog.CategorySource.
func (c *Client) FetchCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, "FetchCategories", http.MethodGet, c.baseURL+"/categories", "", nil, MsgCategoriesFailed, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) do(ctx context.Context, op, method, url, contentType string, body io.Reader, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		berr := &BackendError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    DetailMessage(data, fallback),
		}
		c.log.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("message", berr.Message).
			Msg("Back-end request failed")
		return berr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
