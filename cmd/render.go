package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"daleel/internal/ledger"
	"daleel/pkg/models"
)

// renderOverview prints one line per quarter. Tax stays obscured.
func renderOverview(w io.Writer, s ledger.State) {
	fmt.Fprintf(w, "%s - %d ledger", s.Business.Name, s.Year)
	if s.Ledger.Source == models.SourceFallback {
		fmt.Fprint(w, " (computed from invoice list)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUARTER\tINVOICES\tTOTAL\tREVENUE\tTAX")
	for _, b := range s.Ledger.Quarters {
		tax := s.Taxes.For(b.Quarter)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			b.Quarter.Label(), len(b.Invoices), models.FormatEGP(b.TotalAmount),
			models.FormatEGP(tax.TotalRevenue), ledger.ObscuredAmount)
	}
	fmt.Fprintf(tw, "Total\t%d\t%s\t\t%s\n", s.Ledger.InvoiceCount(), models.FormatEGP(s.Ledger.GrandTotal), ledger.ObscuredAmount)
	_ = tw.Flush()
}

// renderQuarter prints the invoices of one bucket.
func renderQuarter(w io.Writer, b models.QuarterBucket) {
	fmt.Fprintf(w, "%s: %d invoices, %s\n", b.Quarter.Label(), len(b.Invoices), models.FormatEGP(b.TotalAmount))
	if len(b.Invoices) == 0 {
		fmt.Fprintln(w, "  No invoices in this quarter.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NUMBER\tDATE\tISSUER\tRECEIVER\tAMOUNT")
	for _, inv := range b.Invoices {
		date := "N/A"
		if when, ok := inv.EffectiveDate(); ok {
			date = when.Format(models.DateLayout)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", inv.InvoiceNumber, date, inv.IssuerName, inv.ReceiverName, inv.TotalAmount.Display())
	}
	_ = tw.Flush()
}

// renderForm prints the add-invoice form and its messages.
func renderForm(w io.Writer, s ledger.State) {
	fmt.Fprintln(w, "Add Invoice")
	for _, field := range ledger.FormFields {
		value, _ := s.Form.Get(field)
		fmt.Fprintf(w, "  %-14s %s\n", field+":", value)
	}
	renderMessages(w, s)
}

func renderMessages(w io.Writer, s ledger.State) {
	switch {
	case s.Submitting:
		fmt.Fprintln(w, "Processing...")
	case s.Validation != nil:
		fmt.Fprintln(w, "Error:", s.Validation.Message)
	case s.SubmitError != "":
		fmt.Fprintln(w, "Error:", s.SubmitError)
	case s.Success != "":
		fmt.Fprintln(w, s.Success)
	}
}

// renderPane prints whatever the right pane currently shows.
func renderPane(w io.Writer, s ledger.State) {
	if b, ok := s.Visible(); ok {
		renderQuarter(w, b)
		return
	}
	renderForm(w, s)
}

func renderDisclosure(w io.Writer, s ledger.State) {
	if !s.Modal.Shown {
		return
	}
	tax := s.Taxes.For(s.Modal.Quarter)
	fmt.Fprintln(w, s.Modal.Notice)
	fmt.Fprintf(w, "  Revenue: %s\n  Tax:     %s\n", models.FormatEGP(tax.TotalRevenue), ledger.ObscuredAmount)
}
