package ledger

import (
	"context"
	"sync"

	"daleel/pkg/models"
)

// fakeService records every call and delegates to optional hooks.
type fakeService struct {
	mu    sync.Mutex
	calls []string
	added []models.NewInvoice

	quarterly func(ctx context.Context, businessID string, year int) (*models.QuarterlyInvoices, error)
	list      func(ctx context.Context, businessID string) ([]models.Invoice, error)
	add       func(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error)
	tax       func(ctx context.Context, businessID string, year int) (*models.TaxCalculation, error)
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeService) QuarterlyInvoices(ctx context.Context, businessID string, year int) (*models.QuarterlyInvoices, error) {
	f.record("quarterly:" + businessID)
	if f.quarterly != nil {
		return f.quarterly(ctx, businessID, year)
	}
	return &models.QuarterlyInvoices{}, nil
}

func (f *fakeService) BusinessInvoices(ctx context.Context, businessID string) ([]models.Invoice, error) {
	f.record("list:" + businessID)
	if f.list != nil {
		return f.list(ctx, businessID)
	}
	return nil, nil
}

func (f *fakeService) AddInvoice(ctx context.Context, inv models.NewInvoice) (*models.Invoice, error) {
	f.record("add")
	f.mu.Lock()
	f.added = append(f.added, inv)
	f.mu.Unlock()
	if f.add != nil {
		return f.add(ctx, inv)
	}
	return &models.Invoice{ID: "srv-1", InvoiceUUID: inv.InvoiceUUID}, nil
}

func (f *fakeService) CalculateTax(ctx context.Context, businessID string, year int) (*models.TaxCalculation, error) {
	f.record("tax:" + businessID)
	if f.tax != nil {
		return f.tax(ctx, businessID, year)
	}
	return &models.TaxCalculation{}, nil
}
