package ledger

import (
	"fmt"
	"strings"

	"daleel/pkg/models"
)

// Pane is the content shown on the right of the ledger view.
type Pane int

const (
	PaneAddInvoice Pane = iota
	PaneQ1
	PaneQ2
	PaneQ3
	PaneQ4
)

// PaneFor returns the pane listing the invoices of q.
func PaneFor(q models.Quarter) Pane {
	return Pane(q)
}

// Quarter returns the quarter shown by p. ok is false for PaneAddInvoice.
func (p Pane) Quarter() (models.Quarter, bool) {
	if p >= PaneQ1 && p <= PaneQ4 {
		return models.Quarter(p), true
	}
	return 0, false
}

func (p Pane) String() string {
	if q, ok := p.Quarter(); ok {
		return q.String()
	}
	return "Add Invoice"
}

// ParsePane accepts "add" and the quarter spellings understood by ParseQuarter.
func ParsePane(s string) (Pane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "add-invoice", "addinvoice":
		return PaneAddInvoice, nil
	}
	q, err := models.ParseQuarter(s)
	if err != nil {
		return 0, fmt.Errorf("unknown pane %q", s)
	}
	return PaneFor(q), nil
}

// ObscuredAmount replaces tax figures in every rendering of the view.
const ObscuredAmount = "••••• EGP"

// Modal is the service-fee disclosure overlay.
type Modal struct {
	Shown   bool           `json:"shown"`
	Quarter models.Quarter `json:"quarter,omitempty"`
	Notice  string         `json:"notice,omitempty"`
}

// DisclosureNotice is the text shown before the tax of q is revealed.
func DisclosureNotice(q models.Quarter) string {
	return fmt.Sprintf(
		"To view and pay the tax for %s, a service fee of %s%% of the tax amount is added. "+
			"The fee covers the tax calculation and payment service. Agree to continue to checkout.",
		q.Label(), models.ServiceFeeRate.Shift(2).String(),
	)
}

// State is a snapshot of the ledger view.
type State struct {
	Business models.Business `json:"business"`
	Year     int             `json:"year"`

	Pane  Pane  `json:"pane"`
	Modal Modal `json:"modal"`

	Ledger        models.Ledger     `json:"ledger"`
	Taxes         models.TaxFigures `json:"-"`
	LedgerLoading bool              `json:"ledgerLoading"`
	TaxLoading    bool              `json:"taxLoading"`

	Form        InvoiceForm      `json:"form"`
	Submitting  bool             `json:"submitting"`
	Validation  *ValidationError `json:"validation,omitempty"`
	SubmitError string           `json:"submitError,omitempty"`
	Success     string           `json:"success,omitempty"`

	// Departed is set once the view handed off to checkout.
	Departed bool `json:"departed"`
}

// Visible returns the bucket shown in the current pane.
func (s State) Visible() (models.QuarterBucket, bool) {
	q, ok := s.Pane.Quarter()
	if !ok {
		return models.QuarterBucket{}, false
	}
	return s.Ledger.Bucket(q), true
}

func (s State) clone() State {
	out := s
	out.Ledger = s.Ledger.Clone()
	if s.Validation != nil {
		v := *s.Validation
		out.Validation = &v
	}
	return out
}
