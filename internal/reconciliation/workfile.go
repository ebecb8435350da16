package reconciliation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"invoicedesk/pkg/models"
)

// ErrNoWorkingRecord is returned when the working record file does not exist.
var ErrNoWorkingRecord = errors.New("no working record, run analyze first")

// LoadWorkingRecord reads the working record written by SaveWorkingRecord.
func LoadWorkingRecord(path string) (models.InvoiceRecord, error) {
	const op = "LoadWorkingRecord"

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.InvoiceRecord{}, fmt.Errorf("%s: %s: %w", op, path, ErrNoWorkingRecord)
		}
		return models.InvoiceRecord{}, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}

	var rec models.InvoiceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.InvoiceRecord{}, fmt.Errorf("%s: failed to decode %s: %w", op, path, err)
	}

	return rec, nil
}

// SaveWorkingRecord writes rec as indented JSON. The file is replaced atomically.
func SaveWorkingRecord(path string, rec models.InvoiceRecord) error {
	const op = "SaveWorkingRecord"

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: failed to encode record: %w", op, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: failed to create %s: %w", op, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".working-*.json")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: failed to write record: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: failed to write record: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: failed to replace %s: %w", op, path, err)
	}
	return nil
}
