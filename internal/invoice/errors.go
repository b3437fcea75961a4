package invoice

import (
	"errors"
	"fmt"
)

// Common prefill errors
var (
	// ErrInvalidPDF is returned when the provided data is not a PDF document
	// or Document AI rejects it.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrDocumentTooLarge is returned when the PDF exceeds MaxDocumentSizeBytes.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrProcessingFailed is returned when Document AI processing fails.
	ErrProcessingFailed = errors.New("document AI processing failed")

	// ErrNothingExtracted is returned when the document yields no form field.
	ErrNothingExtracted = errors.New("no invoice fields found in document")

	// ErrInvalidCredentials is returned when Google Cloud credentials are invalid
	// or do not have the necessary permissions.
	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	// ErrInvalidConfiguration is returned when the Document AI configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	// ErrProcessorNotFound is returned when the configured processor cannot be accessed.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when Document AI API quota limits are exceeded.
	ErrQuotaExceeded = errors.New("Document AI API quota exceeded")

	// ErrContextCanceled is returned when processing is canceled via context.
	ErrContextCanceled = errors.New("invoice prefill was canceled")
)

// PrefillError wraps prefill failures with the operation that caused them.
type PrefillError struct {
	// Op is the operation that failed (e.g., "Prefill").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *PrefillError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *PrefillError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *PrefillError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapPrefillError wraps err as a PrefillError unless it already is one.
func wrapPrefillError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var prefillErr *PrefillError
	if errors.As(err, &prefillErr) {
		return err
	}

	return &PrefillError{Op: op, Err: err, Details: details}
}
