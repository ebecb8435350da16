package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"invoicedesk/pkg/models"
)

// ReadRange returns the values of a range in A1 notation, e.g. "Invoices!A:B".
func (s *Service) ReadRange(ctx context.Context, readRange string) ([][]interface{}, error) {
	const op = "ReadRange"

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, readRange, err)
	}
	return resp.Values, nil
}

// ExportedIDs returns the invoice IDs already present in the ID column of
// sheetName. A missing or empty sheet yields an empty set.
func (s *Service) ExportedIDs(ctx context.Context, sheetName string) (map[int]bool, error) {
	const op = "ExportedIDs"

	if sheetName == "" {
		sheetName = DefaultWorksheet
	}

	exists, err := s.hasSheet(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids := make(map[int]bool)
	if !exists {
		return ids, nil
	}

	values, err := s.ReadRange(ctx, sheetName+"!A:A")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(values) == 0 {
		return ids, nil
	}

	// Skip header row
	for i, row := range values[1:] {
		rowNum := i + 2

		cell := getString(row, 0)
		if cell == "" {
			continue
		}
		id, err := strconv.Atoi(cell)
		if err != nil || id <= 0 {
			s.log.Warn().
				Int("row", rowNum).
				Str("value", cell).
				Str("sheet", sheetName).
				Msg("Skipping row without a valid invoice ID")
			continue
		}
		ids[id] = true
	}

	s.log.Debug().
		Int("total_rows", len(values)-1).
		Int("exported", len(ids)).
		Str("sheet", sheetName).
		Msg("Exported invoice IDs read")
	return ids, nil
}

// AppendNewInvoices appends the invoices whose ID is not yet in sheetName and
// returns how many rows were written.
func (s *Service) AppendNewInvoices(ctx context.Context, sheetName string, invoices []models.InvoiceRecord) (int, error) {
	exported, err := s.ExportedIDs(ctx, sheetName)
	if err != nil {
		return 0, err
	}

	fresh := make([]models.InvoiceRecord, 0, len(invoices))
	for _, rec := range invoices {
		if rec.ID > 0 && exported[rec.ID] {
			continue
		}
		fresh = append(fresh, rec)
	}
	if skipped := len(invoices) - len(fresh); skipped > 0 {
		s.log.Info().Int("skipped", skipped).Msg("Invoices already exported")
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := s.AppendInvoices(ctx, sheetName, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

func (s *Service) hasSheet(ctx context.Context, sheetName string) (bool, error) {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return true, nil
		}
	}
	return false, nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
