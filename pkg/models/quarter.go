package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quarter is a calendar quarter, 1 through 4.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// Quarters lists the four quarters in order.
var Quarters = [4]Quarter{Q1, Q2, Q3, Q4}

var quarterLabels = [4]string{
	"Q1 (January - March)",
	"Q2 (April - June)",
	"Q3 (July - September)",
	"Q4 (October - December)",
}

// QuarterOf maps a date to its calendar quarter. There is no fiscal-year offset.
func QuarterOf(t time.Time) Quarter {
	return Quarter((int(t.Month())-1)/3 + 1)
}

// ParseQuarter accepts "3", "Q3" and "q3".
func ParseQuarter(s string) (Quarter, error) {
	trimmed := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "Q")
	n, err := strconv.Atoi(trimmed)
	if err != nil || !Quarter(n).Valid() {
		return 0, fmt.Errorf("invalid quarter %q: expected 1-4 or Q1-Q4", s)
	}
	return Quarter(n), nil
}

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool {
	return q >= Q1 && q <= Q4
}

// Index returns the zero-based position of q in Quarters.
func (q Quarter) Index() int {
	return int(q) - 1
}

// Label returns the human label used on the checkout page.
func (q Quarter) Label() string {
	if !q.Valid() {
		return ""
	}
	return quarterLabels[q.Index()]
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d", int(q))
}

func (q *Quarter) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "Q"))
		if err != nil {
			return fmt.Errorf("invalid quarter %q: %w", s, err)
		}
		*q = Quarter(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quarter %s: %w", data, err)
	}
	// Out-of-range values are kept so callers can drop them explicitly
	*q = Quarter(n)
	return nil
}

// QuarterBucket holds the invoices of one quarter. It is derived and never persisted.
type QuarterBucket struct {
	Quarter     Quarter         `json:"quarter"`
	Invoices    []Invoice       `json:"invoices"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// LedgerSource records where a ledger's buckets came from.
type LedgerSource string

const (
	SourceQuarterly LedgerSource = "quarterly" // server aggregation
	SourceFallback  LedgerSource = "fallback"  // flat list bucketed client-side
	SourceEmpty     LedgerSource = "empty"     // nothing loaded
)

// Ledger is a business's invoices for one year, grouped by quarter.
// Quarters always holds all four buckets and GrandTotal is their sum.
type Ledger struct {
	BusinessID string           `json:"businessId"`
	Year       int              `json:"year"`
	Quarters   [4]QuarterBucket `json:"quarters"`
	GrandTotal decimal.Decimal  `json:"grandTotal"`
	Source     LedgerSource     `json:"source"`
}

// EmptyLedger returns a ledger with four empty buckets.
func EmptyLedger(businessID string, year int) Ledger {
	l := Ledger{BusinessID: businessID, Year: year, Source: SourceEmpty}
	for _, q := range Quarters {
		l.Quarters[q.Index()] = QuarterBucket{Quarter: q, Invoices: []Invoice{}, TotalAmount: decimal.Zero}
	}
	l.GrandTotal = decimal.Zero
	return l
}

// Bucket returns the bucket for q. It panics on an invalid quarter.
func (l Ledger) Bucket(q Quarter) QuarterBucket {
	return l.Quarters[q.Index()]
}

// InvoiceCount returns the number of invoices across all quarters.
func (l Ledger) InvoiceCount() int {
	n := 0
	for _, b := range l.Quarters {
		n += len(b.Invoices)
	}
	return n
}

// Clone returns a copy that shares no slices with l.
func (l Ledger) Clone() Ledger {
	out := l
	for i, b := range l.Quarters {
		out.Quarters[i].Invoices = append([]Invoice(nil), b.Invoices...)
	}
	return out
}

// QuarterlyInvoices is the server's quarterly aggregation payload.
type QuarterlyInvoices struct {
	QuarterlyData []QuarterData `json:"quarterlyData"`
	GrandTotal    Amount        `json:"grandTotal"`
}

// QuarterData is one quarter of the server's aggregation payload.
type QuarterData struct {
	Quarter     Quarter   `json:"quarter"`
	Invoices    []Invoice `json:"invoices"`
	TotalAmount Amount    `json:"totalAmount"`
}
