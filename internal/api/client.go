// Package api is the HTTP client of the Daleel backend.
//
// The backend owns persistence, tax computation and payments. This client
// sends one attempt per call and never retries; callers decide how failures
// surface.
//
// Endpoints:
//   - POST /invoices/quarterly-invoices: invoices grouped by quarter
//   - POST /invoices/business-invoices: flat invoice list (bare array or {"invoices": [...]})
//   - POST /invoices/add: create an invoice
//   - POST /business/calculate-tax: quarterly tax figures
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"daleel/internal/logger"
	"daleel/pkg/models"
)

const (
	PathQuarterlyInvoices = "/invoices/quarterly-invoices"
	PathBusinessInvoices  = "/invoices/business-invoices"
	PathAddInvoice        = "/invoices/add"
	PathCalculateTax      = "/business/calculate-tax"

	// maxErrorBody bounds how much of a failed response is read for its message.
	maxErrorBody = 64 * 1024
)

// Client talks to the Daleel backend over JSON/HTTP.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client. The client passed in
// is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	const op = "NewClient"

	if strings.TrimSpace(baseURL) == "" {
		return nil, &APIError{Op: op, Err: ErrMissingBaseURL}
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &APIError{Op: op, Err: fmt.Errorf("invalid base URL %q", baseURL)}
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		log:        logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

type businessYearRequest struct {
	BusinessID string `json:"businessId"`
	Year       int    `json:"year"`
}

type businessRequest struct {
	BusinessID string `json:"businessId"`
}

// QuarterlyInvoices fetches the server-side quarterly aggregation.
func (c *Client) QuarterlyInvoices(ctx context.Context, businessID string, year int) (*models.QuarterlyInvoices, error) {
	const op = "QuarterlyInvoices"

	var out models.QuarterlyInvoices
	body, err := c.post(ctx, op, PathQuarterlyInvoices, businessYearRequest{BusinessID: businessID, Year: year})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return &out, nil
}

// BusinessInvoices fetches the flat invoice list. Both a bare array and an
// {"invoices": [...]} object are accepted.
func (c *Client) BusinessInvoices(ctx context.Context, businessID string) ([]models.Invoice, error) {
	const op = "BusinessInvoices"

	body, err := c.post(ctx, op, PathBusinessInvoices, businessRequest{BusinessID: businessID})
	if err != nil {
		return nil, err
	}

	invoices, err := decodeInvoiceList(body)
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return invoices, nil
}

func decodeInvoiceList(body []byte) ([]models.Invoice, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.Invoice{}, nil
	}

	var invoices []models.Invoice
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &invoices); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Invoices []models.Invoice `json:"invoices"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		invoices = wrapped.Invoices
	}

	if invoices == nil {
		invoices = []models.Invoice{}
	}
	return invoices, nil
}

// AddInvoice creates an invoice. The returned invoice is the backend's
// response when it sent one, otherwise the submitted payload.
func (c *Client) AddInvoice(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error) {
	const op = "AddInvoice"

	body, err := c.post(ctx, op, PathAddInvoice, inv)
	if err != nil {
		return nil, err
	}

	created := fromPayload(inv)
	var decoded models.Invoice
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.log.Debug().Err(err).Msg("Add invoice response not decodable, using payload")
		return &created, nil
	}
	if decoded.ID == "" && decoded.InvoiceUUID == "" && decoded.InvoiceNumber == "" {
		return &created, nil
	}
	return &decoded, nil
}

func fromPayload(inv models.NewInvoice) models.Invoice {
	date := inv.InvoiceDate
	return models.Invoice{
		BusinessID:    inv.BusinessID,
		InvoiceUUID:   inv.InvoiceUUID,
		InvoiceNumber: inv.InvoiceNumber,
		IssuerName:    inv.IssuerName,
		ReceiverName:  inv.ReceiverName,
		TotalAmount:   inv.TotalAmount,
		InvoiceDate:   &date,
	}
}

// CalculateTax fetches the backend's quarterly tax computation.
func (c *Client) CalculateTax(ctx context.Context, businessID string, year int) (*models.TaxCalculation, error) {
	const op = "CalculateTax"

	var out models.TaxCalculation
	body, err := c.post(ctx, op, PathCalculateTax, businessYearRequest{BusinessID: businessID, Year: year})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return &out, nil
}

// post sends payload as JSON and returns the body of a 2xx response.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrRequestFailed, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Str("path", path).Msg("Request failed")
		return nil, &APIError{Op: op, Err: fmt.Errorf("%w: %w", ErrRequestFailed, err)}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Daleel API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Err:        ErrUnexpectedStatus,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrRequestFailed, err)}
	}
	return body, nil
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
