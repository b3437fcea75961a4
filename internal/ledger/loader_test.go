package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daleel/pkg/models"
)

var errUnavailable = errors.New("service unavailable")

func TestLoadLedgerPrefersQuarterly(t *testing.T) {
	svc := &fakeService{
		quarterly: func(_ context.Context, _ string, year int) (*models.QuarterlyInvoices, error) {
			assert.Equal(t, 2024, year)
			return &models.QuarterlyInvoices{QuarterlyData: []models.QuarterData{
				{Quarter: models.Q1, Invoices: []models.Invoice{dated("a", "10", 2024, time.January, 9)}},
			}}, nil
		},
	}

	l := LoadLedger(context.Background(), svc, "biz-1", 2024, zerolog.Nop())
	assert.Equal(t, models.SourceQuarterly, l.Source)
	assert.Equal(t, 1, l.InvoiceCount())
	assert.Equal(t, []string{"quarterly:biz-1"}, svc.Calls())
}

func TestLoadLedgerFallsBackWithSameBusiness(t *testing.T) {
	invoice := dated("x", "75", 2024, time.September, 30)
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) {
			return nil, errUnavailable
		},
		list: func(context.Context, string) ([]models.Invoice, error) {
			return []models.Invoice{invoice}, nil
		},
	}

	l := LoadLedger(context.Background(), svc, "biz-7", 2024, zerolog.Nop())
	assert.Equal(t, []string{"quarterly:biz-7", "list:biz-7"}, svc.Calls())
	assert.Equal(t, models.SourceFallback, l.Source)

	// The fallback assigns the same quarter the date rule gives.
	when, _ := invoice.EffectiveDate()
	assert.Equal(t, []string{"x"}, ids(l.Bucket(models.QuarterOf(when)).Invoices))
	assert.Equal(t, models.Q3, models.QuarterOf(when))
}

func TestLoadLedgerEmptyWhenBothFail(t *testing.T) {
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) { return nil, errUnavailable },
		list:      func(context.Context, string) ([]models.Invoice, error) { return nil, errUnavailable },
	}

	l := LoadLedger(context.Background(), svc, "biz-1", 2024, zerolog.Nop())
	assert.Equal(t, models.SourceEmpty, l.Source)
	assert.Zero(t, l.InvoiceCount())
	assert.True(t, l.GrandTotal.IsZero())
}

func TestLoadLedgerWithoutBusinessSendsNothing(t *testing.T) {
	svc := &fakeService{}
	l := LoadLedger(context.Background(), svc, "", 2024, zerolog.Nop())
	assert.Empty(t, svc.Calls())
	assert.Equal(t, models.SourceEmpty, l.Source)

	figures := LoadTaxFigures(context.Background(), svc, "", 2024, zerolog.Nop())
	assert.Empty(t, svc.Calls())
	assert.True(t, figures.TotalTaxForYear.IsZero())
}

func TestLoadTaxFiguresZeroOnFailure(t *testing.T) {
	svc := &fakeService{
		tax: func(context.Context, string, int) (*models.TaxCalculation, error) { return nil, errUnavailable },
	}

	figures := LoadTaxFigures(context.Background(), svc, "biz-1", 2024, zerolog.Nop())
	require.Equal(t, 2024, figures.Year)
	for _, q := range models.Quarters {
		assert.True(t, figures.For(q).TaxAmount.Equal(decimal.Zero))
	}
}
