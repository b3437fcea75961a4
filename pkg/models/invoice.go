package models

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the Daleel backend reports amounts in.
const Currency = "EGP"

// Business identifies the company a ledger belongs to.
type Business struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TaxNumber string `json:"taxNumber,omitempty"`
}

type Invoice struct {
	// Identifiers
	ID          string `json:"id,omitempty"`          // Server-assigned identifier
	BusinessID  string `json:"businessId,omitempty"`  // Owning business
	InvoiceUUID string `json:"invoiceUuid,omitempty"` // Client-generated correlation id

	// Parties and numbering (free text, user supplied)
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	IssuerName    string `json:"issuerName,omitempty"`
	ReceiverName  string `json:"receiverName,omitempty"`

	// Amount in EGP; legacy records may carry null or zero
	TotalAmount Amount `json:"totalAmount"`

	// Dates
	InvoiceDate *Date `json:"invoiceDate,omitempty"` // Calendar date of the invoice
	CreatedAt   *Date `json:"createdAt,omitempty"`   // Record creation, fallback for legacy records
}

// Key returns the most stable identifier available for the invoice.
func (i Invoice) Key() string {
	if i.InvoiceUUID != "" {
		return i.InvoiceUUID
	}
	return i.ID
}

// EffectiveDate returns the invoice date, falling back to the creation
// timestamp. ok is false when neither is present.
func (i Invoice) EffectiveDate() (time.Time, bool) {
	if i.InvoiceDate != nil && !i.InvoiceDate.IsZero() {
		return i.InvoiceDate.Time, true
	}
	if i.CreatedAt != nil && !i.CreatedAt.IsZero() {
		return i.CreatedAt.Time, true
	}
	return time.Time{}, false
}

// NewInvoice is the payload sent when an invoice is created.
type NewInvoice struct {
	BusinessID    string `json:"businessId"`
	InvoiceUUID   string `json:"invoiceUuid"`
	InvoiceNumber string `json:"invoiceNumber"`
	IssuerName    string `json:"issuerName"`
	ReceiverName  string `json:"receiverName"`
	TotalAmount   Amount `json:"totalAmount"`
	InvoiceDate   Date   `json:"invoiceDate"`
}

// Amount is a nullable EGP amount. It decodes leniently from JSON numbers,
// numeric strings, null and empty strings, and encodes as a bare number.
// Anything else decodes as absent.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps d as a present amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// OrZero returns the amount, or zero when it is absent.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// Display renders the amount the way the dashboard does: "N/A" for
// absent or zero amounts.
func (a Amount) Display() string {
	if !a.Valid || a.Value.IsZero() {
		return "N/A"
	}
	return FormatEGP(a.Value)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	if raw == "" {
		*a = Amount{}
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		// Unparseable amounts are treated like missing ones and render as N/A
		*a = Amount{}
		return nil
	}
	*a = Amount{Value: value, Valid: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// FormatEGP formats d with thousands separators and two decimals.
func FormatEGP(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s%s.%s %s", sign, b.String(), frac, Currency)
}

// Date is a calendar date or timestamp as sent by the backend.
// The zero value means absent.
type Date struct {
	time.Time
}

// DateLayout is the wire format used for invoice dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses a date in any of the layouts the backend is known to emit.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("unable to parse date: %q", s)
}

// NewDate returns the calendar date year-month-day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		// Unknown layouts decode as absent so one odd record does not fail a whole list
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// String returns the date in wire format, or an empty string when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}
