package ledger

import (
	"github.com/shopspring/decimal"

	"daleel/pkg/models"
)

// BucketInvoices partitions the invoices of year into the four calendar
// quarters, keeping the input order inside each bucket. Invoices of other
// years are left out, as are invoices with neither an invoice date nor a
// creation timestamp; skipped counts the latter.
func BucketInvoices(businessID string, year int, invoices []models.Invoice) (l models.Ledger, skipped int) {
	l = models.EmptyLedger(businessID, year)
	l.Source = models.SourceFallback

	for _, inv := range invoices {
		when, ok := inv.EffectiveDate()
		if !ok {
			skipped++
			continue
		}
		if when.Year() != year {
			continue
		}
		idx := models.QuarterOf(when).Index()
		l.Quarters[idx].Invoices = append(l.Quarters[idx].Invoices, inv)
	}

	for i := range l.Quarters {
		l.Quarters[i].TotalAmount = sumInvoices(l.Quarters[i].Invoices)
	}
	l.GrandTotal = grandTotal(l.Quarters)
	return l, skipped
}

// FromQuarterly normalizes the server's quarterly aggregation into a ledger
// with all four quarters. Server bucket totals are kept; missing ones are
// computed from the bucket's invoices. Unknown quarter numbers are dropped and
// a repeated quarter is merged into the first occurrence. The returned
// warnings describe every disagreement between server and client arithmetic.
func FromQuarterly(businessID string, year int, data *models.QuarterlyInvoices) (models.Ledger, []string) {
	l := models.EmptyLedger(businessID, year)
	l.Source = models.SourceQuarterly
	if data == nil {
		return l, nil
	}

	r := newReconciler()
	reported := [4]models.Amount{}
	seen := [4]bool{}

	for _, qd := range data.QuarterlyData {
		if !qd.Quarter.Valid() {
			r.warnf("dropping unknown quarter %d with %d invoices", int(qd.Quarter), len(qd.Invoices))
			continue
		}
		idx := qd.Quarter.Index()
		if seen[idx] {
			r.warnf("%s reported more than once, merging", qd.Quarter)
			reported[idx] = addAmounts(reported[idx], qd.TotalAmount)
		} else {
			reported[idx] = qd.TotalAmount
		}
		seen[idx] = true
		l.Quarters[idx].Invoices = append(l.Quarters[idx].Invoices, qd.Invoices...)
	}

	for _, q := range models.Quarters {
		bucket := &l.Quarters[q.Index()]
		computed := sumInvoices(bucket.Invoices)
		r.checkAssignment(q, bucket.Invoices)

		if reported[q.Index()].Valid {
			bucket.TotalAmount = reported[q.Index()].Value
			r.compare(q.String()+" total", bucket.TotalAmount, computed)
		} else {
			bucket.TotalAmount = computed
		}
	}

	l.GrandTotal = grandTotal(l.Quarters)
	if data.GrandTotal.Valid {
		r.compare("grand total", data.GrandTotal.Value, l.GrandTotal)
	}

	return l, r.warnings
}

func addAmounts(a, b models.Amount) models.Amount {
	if !a.Valid {
		return b
	}
	if !b.Valid {
		return a
	}
	return models.NewAmount(a.Value.Add(b.Value))
}

func sumInvoices(invoices []models.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount.OrZero())
	}
	return total
}

func grandTotal(buckets [4]models.QuarterBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.TotalAmount)
	}
	return total
}

// TaxFiguresFrom maps the backend's tax calculation onto four quarters.
// Absent quarters and amounts are zero.
func TaxFiguresFrom(year int, calc *models.TaxCalculation) models.TaxFigures {
	figures := models.ZeroTaxFigures(year)
	if calc == nil {
		return figures
	}
	for _, qt := range calc.QuarterlyTaxes {
		if !qt.Quarter.Valid() {
			continue
		}
		figures.Quarters[qt.Quarter.Index()] = models.QuarterlyTax{
			Quarter:      qt.Quarter,
			TotalRevenue: qt.TotalRevenue.OrZero(),
			TaxAmount:    qt.TaxAmount.OrZero(),
		}
	}
	if calc.TotalTaxForYear.Valid {
		figures.TotalTaxForYear = calc.TotalTaxForYear.Value
	} else {
		total := decimal.Zero
		for _, qt := range figures.Quarters {
			total = total.Add(qt.TaxAmount)
		}
		figures.TotalTaxForYear = total
	}
	return figures
}
