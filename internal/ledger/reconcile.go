package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"daleel/pkg/models"
)

// reconciler collects disagreements between server-reported and
// client-computed ledger figures. The server figures always win.
type reconciler struct {
	warnings []string
}

func newReconciler() *reconciler {
	return &reconciler{warnings: []string{}}
}

func (r *reconciler) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// compare records a warning when reported and computed differ.
func (r *reconciler) compare(what string, reported, computed decimal.Decimal) {
	if reported.Equal(computed) {
		return
	}
	r.warnf("%s discrepancy: server=%s, invoices=%s (%s%% difference)",
		what, reported.StringFixed(2), computed.StringFixed(2), discrepancy(reported, computed).StringFixed(1))
}

// checkAssignment warns about invoices whose date belongs to another quarter.
func (r *reconciler) checkAssignment(q models.Quarter, invoices []models.Invoice) {
	for _, inv := range invoices {
		when, ok := inv.EffectiveDate()
		if !ok {
			continue
		}
		if got := models.QuarterOf(when); got != q {
			r.warnf("invoice %s dated %s reported in %s, date belongs to %s",
				inv.Key(), when.Format(models.DateLayout), q, got)
		}
	}
}

// discrepancy returns the difference between a and b as a percentage of the larger one.
func discrepancy(a, b decimal.Decimal) decimal.Decimal {
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(larger).Mul(decimal.NewFromInt(100))
}
