package invoice

import (
	"errors"
	"fmt"

	"invoicedesk/internal/ocr"
	"invoicedesk/internal/validation"
)

// Common analysis errors. The image errors are shared with the ocr package so
// callers can match either.
var (
	ErrImageTooLarge    = ocr.ErrImageTooLarge
	ErrUnsupportedImage = ocr.ErrInvalidImage
	ErrEmptyDocument    = ocr.ErrEmptyDocument

	// ErrAnalysisFailed is returned when an analyzer could not produce a record.
	ErrAnalysisFailed = errors.New("invoice analysis failed")

	// ErrInvalidCredentials is returned when Google Cloud rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	// ErrMissingCredentials is returned when no credentials are configured.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidConfiguration is returned when required settings are missing or invalid.
	ErrInvalidConfiguration = errors.New("invalid analyzer configuration")

	// ErrProcessorNotFound is returned when the Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when an API quota is exhausted.
	ErrQuotaExceeded = errors.New("API quota exceeded")

	// ErrUnknownAnalyzer is returned by NewAnalyzer for an unsupported kind.
	ErrUnknownAnalyzer = errors.New("unknown analyzer")

	// ErrContextCanceled is returned when the context is canceled during analysis.
	ErrContextCanceled = errors.New("invoice analysis was canceled")
)

// ValidationErrors lists the save-time validation failures of a record, in
// field order.
type ValidationErrors = validation.Errors

// AnalysisError wraps errors with the analyzer operation that failed.
type AnalysisError struct {
	Op       string
	Analyzer string
	Err      error
	Details  string
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	prefix := "invoice: " + e.Op
	if e.Analyzer != "" {
		prefix += " (" + e.Analyzer + ")"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s failed: %s: %v", prefix, e.Details, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", prefix, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Is reports whether the wrapped error matches target.
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(op string, err error, details string) *AnalysisError {
	return &AnalysisError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapAnalysisError wraps err as an AnalysisError unless it already is one.
func WrapAnalysisError(op string, err error, details string) error {
	return wrapWithAnalyzer("", op, err, details)
}

func wrapWithAnalyzer(analyzer, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return err
	}

	e := NewAnalysisError(op, err, details)
	e.Analyzer = analyzer
	return e
}
