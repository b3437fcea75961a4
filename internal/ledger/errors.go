package ledger

import (
	"errors"
	"fmt"

	"daleel/internal/api"
)

// ErrUnmounted is returned by blocking view calls once the view is gone.
var ErrUnmounted = errors.New("ledger view is unmounted")

// Messages shown to the user.
const (
	MsgMissingFields  = "Please fill in all invoice fields."
	MsgInvalidAmount  = "Total amount must be a valid number greater than 0."
	MsgInvalidDate    = "Invoice date must be a valid date (YYYY-MM-DD)."
	MsgInvoiceAdded   = "Invoice added successfully."
	MsgSubmitFallback = "Failed to add invoice. Please try again."
)

// ValidationError reports a form field that cannot be submitted.
// It is shown next to the form and never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// SubmissionError is a failed invoice submission as shown to the user.
type SubmissionError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// newSubmissionError prefers the backend's own message.
func newSubmissionError(err error) *SubmissionError {
	if msg, ok := api.ServerMessage(err); ok {
		return &SubmissionError{Message: msg, Err: err}
	}
	return &SubmissionError{Message: MsgSubmitFallback, Err: err}
}
