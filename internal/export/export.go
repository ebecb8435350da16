// Package export writes saved invoices as spreadsheet rows, to an .xlsx
// workbook or to Google Sheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"invoicedesk/pkg/models"
)

// Sheet names of the workbook.
const (
	InvoicesSheet = "Invoices"
	ItemsSheet    = "Items"
)

// InvoiceHeader labels the columns of InvoiceValues.
var InvoiceHeader = []string{
	"ID", "Số hóa đơn", "Nhà cung cấp", "Ngày", "Danh mục",
	"Thuế suất (%)", "Tiền hàng", "Tiền thuế", "Tổng thanh toán", "Số sản phẩm", "Ngày tạo",
}

// ItemHeader labels the columns of ItemValues.
var ItemHeader = []string{
	"ID hóa đơn", "Số hóa đơn", "STT", "Tên sản phẩm", "Số lượng", "Đơn giá", "Thành tiền",
}

// InvoiceValues is the Invoices row of rec.
func InvoiceValues(rec models.InvoiceRecord) []any {
	category := ""
	if rec.ProductCategory != nil {
		category = rec.ProductCategory.Name
	}
	createdAt := ""
	if rec.CreatedAt != nil {
		createdAt = rec.CreatedAt.Format(time.DateTime)
	}
	return []any{
		rec.ID,
		rec.InvoiceNumber,
		rec.SupplierName,
		rec.Date,
		category,
		rec.VATRate,
		rec.TotalAmount,
		rec.VATAmount,
		rec.GrandTotal(),
		len(rec.LineItems),
		createdAt,
	}
}

// ItemValues returns one Items row per line item of rec, numbered from 1.
func ItemValues(rec models.InvoiceRecord) [][]any {
	rows := make([][]any, 0, len(rec.LineItems))
	for i, item := range rec.LineItems {
		rows = append(rows, []any{
			rec.ID,
			rec.InvoiceNumber,
			i + 1,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.Total,
		})
	}
	return rows
}

// WriteWorkbook writes invoices to w as an .xlsx workbook with an Invoices and
// an Items sheet.
func WriteWorkbook(w io.Writer, invoices []models.InvoiceRecord) error {
	const op = "WriteWorkbook"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return fmt.Errorf("%s: failed to rename sheet: %w", op, err)
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return fmt.Errorf("%s: failed to create sheet: %w", op, err)
	}

	var invoiceRows, itemRows [][]any
	for _, rec := range invoices {
		invoiceRows = append(invoiceRows, InvoiceValues(rec))
		itemRows = append(itemRows, ItemValues(rec)...)
	}

	if err := writeSheet(f, InvoicesSheet, InvoiceHeader, invoiceRows, []string{"G", "I"}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeSheet(f, ItemsSheet, ItemHeader, itemRows, []string{"F", "G"}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: failed to write workbook: %w", op, err)
	}
	return nil
}

// writeSheet writes a bold header row and the rows below it. Columns from
// moneyCols[0] to moneyCols[1] get a thousands-separated number format.
func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, moneyCols []string) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	if len(rows) > 0 {
		moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
		if err != nil {
			return fmt.Errorf("failed to create number style: %w", err)
		}
		last := fmt.Sprintf("%s%d", moneyCols[1], len(rows)+1)
		if err := f.SetCellStyle(sheet, moneyCols[0]+"2", last, moneyStyle); err != nil {
			return fmt.Errorf("failed to style %s amounts: %w", sheet, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	return nil
}
