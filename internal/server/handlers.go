package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/ocr"
	"invoicedesk/internal/storage"
	"invoicedesk/pkg/models"
)

// User-facing error details.
const (
	DetailInvoiceNumberRequired = "Số hóa đơn là bắt buộc"
	DetailCategoryRequired      = "Danh mục sản phẩm là bắt buộc"
	DetailLineItemsRequired     = "Phải có ít nhất một sản phẩm"
	DetailCategoryNotFound      = "Category not found"
	DetailInvoiceNotFound       = "Invoice not found"
	DetailFileRequired          = "Vui lòng chọn file ảnh hóa đơn"
)

// recentInvoices is the number of invoices returned by GET /invoices.
const recentInvoices = 20

// analyzeResponse is an InvoiceRecord with the analysis metadata alongside.
type analyzeResponse struct {
	models.InvoiceRecord
	Source      string             `json:"source"`
	StatedTotal float64            `json:"statedTotal,omitempty"`
	Confidence  map[string]float32 `json:"confidence,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}

func detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

func (s *Server) analyzeInvoice(c *gin.Context) {
	log := logger.GetGinLogger(c)

	header, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, DetailFileRequired)
		return
	}
	if header.Size > ocr.MaxImageBytes {
		detail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Ảnh vượt quá %d MB", ocr.MaxImageBytes>>20))
		return
	}

	file, err := header.Open()
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ocr.MaxImageBytes+1))
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), header.Filename, data)
	if err != nil {
		_ = c.Error(err)
		log.Error().Err(err).Str("file", header.Filename).Msg("Invoice analysis failed")
		detail(c, analysisStatus(err), "Lỗi phân tích hóa đơn: "+err.Error())
		return
	}

	for _, warning := range result.Warnings {
		log.Warn().Str("file", header.Filename).Msg(warning)
	}

	c.JSON(http.StatusOK, analyzeResponse{
		InvoiceRecord: result.Record,
		Source:        result.Source,
		StatedTotal:   result.StatedTotal,
		Confidence:    result.Confidence,
		Warnings:      result.Warnings,
	})
}

func analysisStatus(err error) int {
	switch {
	case errors.Is(err, invoice.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, invoice.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, invoice.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, invoice.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) createOCRInvoice(c *gin.Context) {
	log := logger.GetGinLogger(c)
	ctx := c.Request.Context()

	var req ocrInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.InvoiceNumber == "" {
		detail(c, http.StatusBadRequest, DetailInvoiceNumberRequired)
		return
	}
	if req.ProductCategory == nil || req.ProductCategory.ID.ID == nil {
		detail(c, http.StatusBadRequest, DetailCategoryRequired)
		return
	}
	if len(req.LineItems) == 0 {
		detail(c, http.StatusBadRequest, DetailLineItemsRequired)
		return
	}

	categoryID := *req.ProductCategory.ID.ID
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			detail(c, http.StatusBadRequest, fmt.Sprintf("Danh mục ID %d không tồn tại", categoryID))
			return
		}
		s.databaseError(c, err)
		return
	}

	supplier := truncate(req.SupplierName, maxNameLen)
	inv := Invoice{
		InvoiceNumber: truncate(req.InvoiceNumber, maxInvoiceNumberLen),
		SupplierName:  supplier,
		MerchantName:  supplier,
		Date:          truncate(req.Date, maxDateLen),
		TotalAmount:   int64(req.TotalAmount),
		VATRate:       int64(req.VATRate),
		VATAmount:     int64(req.VATAmount),
		RawText:       req.RawText,
		Items:         make([]InvoiceItem, 0, len(req.LineItems)),
	}
	for _, item := range req.LineItems {
		name := truncate(item.ProductName, maxNameLen)
		total := int64(item.Total)
		if total == 0 {
			total = int64(item.Quantity) * int64(item.UnitPrice)
		}
		id := categoryID
		inv.Items = append(inv.Items, InvoiceItem{
			Name:        name,
			ProductName: name,
			Quantity:    int64(item.Quantity),
			UnitPrice:   int64(item.UnitPrice),
			Price:       total,
			Total:       total,
			CategoryID:  &id,
		})
	}

	if err := s.store.CreateInvoice(ctx, &inv); err != nil {
		s.databaseError(c, err)
		return
	}

	log.Info().
		Uint("id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Int("items", len(inv.Items)).
		Msg("Saved OCR invoice")

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Success",
		"id":            inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"totalAmount":   inv.TotalAmount,
	})
}

func (s *Server) createReceipt(c *gin.Context) {
	log := logger.GetGinLogger(c)
	ctx := c.Request.Context()

	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var sum int64
	inv := Invoice{
		MerchantName: truncate(valueOr(req.MerchantName, "Unknown Store"), maxNameLen),
		Date:         truncate(valueOr(req.Date, ""), maxDateLen),
		RawText:      valueOr(req.RawText, ""),
		Items:        make([]InvoiceItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		categoryID := item.CategoryID.ID
		if categoryID != nil {
			if _, err := s.store.GetCategory(ctx, *categoryID); err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					s.databaseError(c, err)
					return
				}
				log.Warn().Uint("category_id", *categoryID).Msg("Unknown category, saving item without category")
				categoryID = nil
			}
		}

		name := truncate(valueOr(item.Name, "Unknown Item"), maxNameLen)
		price := int64(item.Price)
		sum += price
		inv.Items = append(inv.Items, InvoiceItem{
			Name:        name,
			ProductName: name,
			Price:       price,
			Total:       price,
			CategoryID:  categoryID,
		})
	}
	inv.TotalAmount = sum
	if sum == 0 {
		inv.TotalAmount = int64(req.TotalAmount)
	}

	if err := s.store.CreateInvoice(ctx, &inv); err != nil {
		s.databaseError(c, err)
		return
	}

	log.Info().Uint("id", inv.ID).Msg("Saved receipt")
	c.JSON(http.StatusCreated, gin.H{"message": "Success", "id": inv.ID})
}

func (s *Server) listInvoices(c *gin.Context) {
	invoices, err := s.store.ListInvoices(c.Request.Context(), recentInvoices)
	if err != nil {
		s.databaseError(c, err)
		return
	}
	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, invoiceView(inv))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := s.store.GetInvoice(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		detail(c, http.StatusNotFound, DetailInvoiceNotFound)
		return
	}
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoiceView(inv))
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.store.ListCategories(c.Request.Context())
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) getCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	category, err := s.store.GetCategory(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		detail(c, http.StatusNotFound, DetailCategoryNotFound)
		return
	}
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (s *Server) productsByCategory(c *gin.Context) {
	groups, err := s.store.ProductsByCategory(c.Request.Context())
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) productsInCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	group, err := s.store.ProductsInCategory(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		detail(c, http.StatusNotFound, DetailCategoryNotFound)
		return
	}
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) statistics(c *gin.Context) {
	stats, err := s.store.Statistics(c.Request.Context())
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) databaseError(c *gin.Context, err error) {
	_ = c.Error(err)
	log := logger.GetGinLogger(c)
	log.Error().Err(err).Msg("Database error")
	detail(c, http.StatusInternalServerError, "Lỗi lưu Database: "+err.Error())
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		detail(c, http.StatusUnprocessableEntity, fmt.Sprintf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}
