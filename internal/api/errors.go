package api

import (
	"errors"
	"fmt"
)

// Common Daleel backend errors
var (
	// ErrMissingBaseURL is returned when the client is built without a backend URL.
	ErrMissingBaseURL = errors.New("missing Daleel API base URL")

	// ErrRequestFailed is returned when the request could not be sent or the
	// response could not be read.
	ErrRequestFailed = errors.New("Daleel API request failed")

	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status from Daleel API")

	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from Daleel API")
)

// APIError wraps backend failures with the operation that caused them.
type APIError struct {
	// Op is the client operation that failed (e.g., "QuarterlyInvoices").
	Op string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Message is the backend's own explanation, when it sent one.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("api: %s failed (status %d): %s: %v", e.Op, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("api: %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("api: %s failed: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *APIError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ServerMessage returns the backend-provided message carried by err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
