package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daleel/pkg/models"
)

// Form field names, as used by the backend payload.
const (
	FieldInvoiceNumber = "invoiceNumber"
	FieldIssuerName    = "issuerName"
	FieldReceiverName  = "receiverName"
	FieldTotalAmount   = "totalAmount"
	FieldInvoiceDate   = "invoiceDate"
)

// FormFields lists the fields in display order.
var FormFields = []string{FieldInvoiceNumber, FieldIssuerName, FieldReceiverName, FieldTotalAmount, FieldInvoiceDate}

// InvoiceForm holds the raw, user-typed values of the add-invoice form.
type InvoiceForm struct {
	InvoiceNumber string `json:"invoiceNumber"`
	IssuerName    string `json:"issuerName"`
	ReceiverName  string `json:"receiverName"`
	TotalAmount   string `json:"totalAmount"`
	InvoiceDate   string `json:"invoiceDate"`
}

// Set assigns value to the named field.
func (f *InvoiceForm) Set(field, value string) error {
	switch field {
	case FieldInvoiceNumber:
		f.InvoiceNumber = value
	case FieldIssuerName:
		f.IssuerName = value
	case FieldReceiverName:
		f.ReceiverName = value
	case FieldTotalAmount:
		f.TotalAmount = value
	case FieldInvoiceDate:
		f.InvoiceDate = value
	default:
		return fmt.Errorf("unknown invoice field %q", field)
	}
	return nil
}

// Get returns the value of the named field.
func (f InvoiceForm) Get(field string) (string, bool) {
	switch field {
	case FieldInvoiceNumber:
		return f.InvoiceNumber, true
	case FieldIssuerName:
		return f.IssuerName, true
	case FieldReceiverName:
		return f.ReceiverName, true
	case FieldTotalAmount:
		return f.TotalAmount, true
	case FieldInvoiceDate:
		return f.InvoiceDate, true
	}
	return "", false
}

// Merge overwrites the fields of f that are non-empty in other.
func (f *InvoiceForm) Merge(other InvoiceForm) {
	for _, field := range FormFields {
		if v, _ := other.Get(field); v != "" {
			_ = f.Set(field, v)
		}
	}
}

// IsEmpty reports whether no field has been filled in.
func (f InvoiceForm) IsEmpty() bool {
	return f == InvoiceForm{}
}

// Validate checks the form and converts it into an invoice payload
// for businessID. The correlation id is left for the caller.
func (f InvoiceForm) Validate(businessID string) (models.NewInvoice, *ValidationError) {
	for _, field := range FormFields {
		if v, _ := f.Get(field); strings.TrimSpace(v) == "" {
			return models.NewInvoice{}, &ValidationError{Field: field, Message: MsgMissingFields}
		}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(f.TotalAmount))
	if err != nil || !amount.IsPositive() {
		return models.NewInvoice{}, &ValidationError{Field: FieldTotalAmount, Message: MsgInvalidAmount}
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(f.InvoiceDate))
	if err != nil {
		return models.NewInvoice{}, &ValidationError{Field: FieldInvoiceDate, Message: MsgInvalidDate}
	}

	return models.NewInvoice{
		BusinessID:    businessID,
		InvoiceNumber: strings.TrimSpace(f.InvoiceNumber),
		IssuerName:    strings.TrimSpace(f.IssuerName),
		ReceiverName:  strings.TrimSpace(f.ReceiverName),
		TotalAmount:   models.NewAmount(amount),
		InvoiceDate:   models.Date{Time: date},
	}, nil
}
