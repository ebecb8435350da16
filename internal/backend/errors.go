package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Fallback messages used when a failed response carries no detail
const (
	MsgAnalyzeFailed    = "Lỗi khi phân tích hóa đơn"
	MsgPersistFailed    = "Lỗi khi lưu vào database"
	MsgCategoriesFailed = "Lỗi khi tải danh mục"
)

// BackendError is a non-2xx response from the back-end.
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s: %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is reports whether target is a BackendError with the same status code, or a
// BackendError with status code 0 (matching any).
func (e *BackendError) Is(target error) bool {
	t, ok := target.(*BackendError)
	if !ok {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// DetailMessage extracts the user-facing message of an error response body.
//
// A string "detail" is returned as is. Any other JSON detail (for example a list
// of field errors) is returned as compact JSON text. Bodies without a detail yield
// fallback.
func DetailMessage(body []byte, fallback string) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fallback
	}

	detail := bytes.TrimSpace(envelope.Detail)
	if len(detail) == 0 || bytes.Equal(detail, []byte("null")) {
		return fallback
	}

	var text string
	if err := json.Unmarshal(detail, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return fallback
		}
		return text
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, detail); err != nil {
		return fallback
	}
	return compact.String()
}
