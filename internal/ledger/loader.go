package ledger

import (
	"context"

	"github.com/rs/zerolog"

	"daleel/pkg/models"
)

// InvoiceService is the backend surface the ledger view depends on.
// *api.Client implements it.
type InvoiceService interface {
	QuarterlyInvoices(ctx context.Context, businessID string, year int) (*models.QuarterlyInvoices, error)
	BusinessInvoices(ctx context.Context, businessID string) ([]models.Invoice, error)
	AddInvoice(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error)
	CalculateTax(ctx context.Context, businessID string, year int) (*models.TaxCalculation, error)
}

// LoadLedger fetches the quarterly ledger of a business. It prefers the
// server aggregation and falls back to bucketing the flat invoice list.
// It never fails: when nothing can be loaded the empty ledger is returned.
func LoadLedger(ctx context.Context, svc InvoiceService, businessID string, year int, log zerolog.Logger) models.Ledger {
	if businessID == "" {
		log.Debug().Msg("No business selected, skipping ledger load")
		return models.EmptyLedger(businessID, year)
	}

	data, err := svc.QuarterlyInvoices(ctx, businessID, year)
	if err == nil {
		l, warnings := FromQuarterly(businessID, year, data)
		for _, w := range warnings {
			log.Warn().Int("year", year).Msg("Ledger reconciliation: " + w)
		}
		log.Debug().
			Int("year", year).
			Int("invoices", l.InvoiceCount()).
			Str("grand_total", l.GrandTotal.StringFixed(2)).
			Msg("Loaded quarterly ledger")
		return l
	}

	if ctx.Err() != nil {
		return models.EmptyLedger(businessID, year)
	}
	log.Warn().
		Err(err).
		Int("year", year).
		Msg("Quarterly aggregation unavailable, falling back to invoice list")

	invoices, err := svc.BusinessInvoices(ctx, businessID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch invoices, showing empty ledger")
		return models.EmptyLedger(businessID, year)
	}

	l, skipped := BucketInvoices(businessID, year, invoices)
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Invoices without any date left out of the ledger")
	}
	log.Debug().
		Int("year", year).
		Int("invoices", l.InvoiceCount()).
		Int("fetched", len(invoices)).
		Msg("Bucketed invoice list client-side")
	return l
}

// LoadTaxFigures fetches the backend's tax computation. Failures yield zero figures.
func LoadTaxFigures(ctx context.Context, svc InvoiceService, businessID string, year int, log zerolog.Logger) models.TaxFigures {
	if businessID == "" {
		return models.ZeroTaxFigures(year)
	}

	calc, err := svc.CalculateTax(ctx, businessID, year)
	if err != nil {
		log.Warn().Err(err).Int("year", year).Msg("Failed to fetch tax figures, showing zero")
		return models.ZeroTaxFigures(year)
	}
	return TaxFiguresFrom(year, calc)
}
