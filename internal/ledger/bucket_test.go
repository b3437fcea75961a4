package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daleel/pkg/models"
)

func amount(v string) models.Amount {
	return models.NewAmount(decimal.RequireFromString(v))
}

func dated(id string, total string, year int, month time.Month, day int) models.Invoice {
	d := models.NewDate(year, month, day)
	return models.Invoice{ID: id, BusinessID: "biz-1", TotalAmount: amount(total), InvoiceDate: &d}
}

func ids(invoices []models.Invoice) []string {
	out := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, inv.ID)
	}
	return out
}

func TestBucketInvoicesPartitionsByCalendarMonth(t *testing.T) {
	var invoices []models.Invoice
	for m := time.January; m <= time.December; m++ {
		invoices = append(invoices, dated(m.String(), "10", 2024, m, 15))
	}

	l, skipped := BucketInvoices("biz-1", 2024, invoices)
	require.Zero(t, skipped)
	assert.Equal(t, models.SourceFallback, l.Source)

	assert.Equal(t, []string{"January", "February", "March"}, ids(l.Bucket(models.Q1).Invoices))
	assert.Equal(t, []string{"April", "May", "June"}, ids(l.Bucket(models.Q2).Invoices))
	assert.Equal(t, []string{"July", "August", "September"}, ids(l.Bucket(models.Q3).Invoices))
	assert.Equal(t, []string{"October", "November", "December"}, ids(l.Bucket(models.Q4).Invoices))
	assert.Equal(t, 12, l.InvoiceCount())

	for _, q := range models.Quarters {
		assert.True(t, decimal.NewFromInt(30).Equal(l.Bucket(q).TotalAmount), q.String())
	}
	assert.True(t, decimal.NewFromInt(120).Equal(l.GrandTotal))
}

func TestBucketInvoicesKeepsInputOrder(t *testing.T) {
	invoices := []models.Invoice{
		dated("late", "1", 2024, time.March, 30),
		dated("early", "1", 2024, time.January, 2),
	}
	l, _ := BucketInvoices("biz-1", 2024, invoices)
	assert.Equal(t, []string{"late", "early"}, ids(l.Bucket(models.Q1).Invoices))
}

func TestBucketInvoicesFallsBackToCreatedAt(t *testing.T) {
	created := models.NewDate(2024, time.August, 1)
	legacy := models.Invoice{ID: "legacy", TotalAmount: amount("40"), CreatedAt: &created}
	undated := models.Invoice{ID: "undated", TotalAmount: amount("5")}
	otherYear := dated("old", "100", 2023, time.August, 1)

	l, skipped := BucketInvoices("biz-1", 2024, []models.Invoice{legacy, undated, otherYear})
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"legacy"}, ids(l.Bucket(models.Q3).Invoices))
	assert.Equal(t, 1, l.InvoiceCount())
	assert.True(t, decimal.NewFromInt(40).Equal(l.GrandTotal))
}

func TestBucketInvoicesTreatsMissingAmountsAsZero(t *testing.T) {
	d := models.NewDate(2024, time.May, 1)
	l, _ := BucketInvoices("biz-1", 2024, []models.Invoice{
		{ID: "null", InvoiceDate: &d},
		dated("paid", "12.5", 2024, time.June, 1),
	})
	assert.Len(t, l.Bucket(models.Q2).Invoices, 2)
	assert.True(t, decimal.RequireFromString("12.5").Equal(l.Bucket(models.Q2).TotalAmount))
}

func TestFromQuarterlyFillsMissingQuarters(t *testing.T) {
	data := &models.QuarterlyInvoices{
		QuarterlyData: []models.QuarterData{
			{Quarter: models.Q2, Invoices: []models.Invoice{dated("a", "100", 2024, time.April, 3)}, TotalAmount: amount("100")},
		},
		GrandTotal: amount("100"),
	}

	l, warnings := FromQuarterly("biz-1", 2024, data)
	assert.Empty(t, warnings)
	assert.Equal(t, models.SourceQuarterly, l.Source)
	for i, b := range l.Quarters {
		assert.Equal(t, models.Quarters[i], b.Quarter)
		assert.NotNil(t, b.Invoices)
	}
	assert.Empty(t, l.Bucket(models.Q1).Invoices)
	assert.True(t, l.Bucket(models.Q4).TotalAmount.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(l.GrandTotal))
}

func TestFromQuarterlyGrandTotalIsBucketSum(t *testing.T) {
	data := &models.QuarterlyInvoices{
		QuarterlyData: []models.QuarterData{
			{Quarter: models.Q1, Invoices: []models.Invoice{dated("a", "100", 2024, time.February, 3)}, TotalAmount: amount("100")},
			{Quarter: models.Q4, Invoices: []models.Invoice{dated("b", "250", 2024, time.November, 3)}},
		},
		GrandTotal: amount("999"),
	}

	l, warnings := FromQuarterly("biz-1", 2024, data)
	assert.True(t, decimal.NewFromInt(250).Equal(l.Bucket(models.Q4).TotalAmount), "missing total computed from invoices")
	assert.True(t, decimal.NewFromInt(350).Equal(l.GrandTotal))

	sum := decimal.Zero
	for _, b := range l.Quarters {
		sum = sum.Add(b.TotalAmount)
	}
	assert.True(t, sum.Equal(l.GrandTotal))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "grand total")
}

func TestFromQuarterlyKeepsServerBucketTotal(t *testing.T) {
	data := &models.QuarterlyInvoices{
		QuarterlyData: []models.QuarterData{
			{Quarter: models.Q3, Invoices: []models.Invoice{dated("a", "100", 2024, time.July, 3)}, TotalAmount: amount("120")},
		},
	}

	l, warnings := FromQuarterly("biz-1", 2024, data)
	assert.True(t, decimal.NewFromInt(120).Equal(l.Bucket(models.Q3).TotalAmount))
	assert.True(t, decimal.NewFromInt(120).Equal(l.GrandTotal))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Q3 total")
}

func TestFromQuarterlyDropsUnknownQuarters(t *testing.T) {
	data := &models.QuarterlyInvoices{
		QuarterlyData: []models.QuarterData{
			{Quarter: models.Quarter(5), Invoices: []models.Invoice{dated("x", "1", 2024, time.May, 1)}, TotalAmount: amount("1")},
			{Quarter: models.Q1, TotalAmount: amount("0")},
		},
	}

	l, warnings := FromQuarterly("biz-1", 2024, data)
	assert.Zero(t, l.InvoiceCount())
	assert.True(t, l.GrandTotal.IsZero())
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "unknown quarter 5")
}

func TestFromQuarterlyDropsDecodedQuarterLabelsOutOfRange(t *testing.T) {
	raw := `{"quarterlyData":[
		{"quarter":"Q5","invoices":[{"id":"x","totalAmount":1,"invoiceDate":"2024-05-01"}],"totalAmount":1},
		{"quarter":"Q2","invoices":[{"id":"y","totalAmount":20,"invoiceDate":"2024-05-02"}],"totalAmount":20}
	],"grandTotal":21}`
	var data models.QuarterlyInvoices
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	l, warnings := FromQuarterly("biz-1", 2024, &data)
	require.Len(t, l.Quarters[models.Q2.Index()].Invoices, 1)
	assert.Equal(t, 1, l.InvoiceCount())
	assert.True(t, l.GrandTotal.Equal(decimal.NewFromInt(20)))
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "unknown quarter 5")
}

func TestFromQuarterlyWarnsOnMisplacedInvoice(t *testing.T) {
	data := &models.QuarterlyInvoices{
		QuarterlyData: []models.QuarterData{
			{Quarter: models.Q1, Invoices: []models.Invoice{dated("a", "10", 2024, time.May, 1)}},
		},
	}

	l, warnings := FromQuarterly("biz-1", 2024, data)
	assert.Equal(t, []string{"a"}, ids(l.Bucket(models.Q1).Invoices), "server assignment is kept")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Q2")
}

func TestFromQuarterlyNil(t *testing.T) {
	l, warnings := FromQuarterly("biz-1", 2024, nil)
	assert.Nil(t, warnings)
	assert.Zero(t, l.InvoiceCount())
}

func TestTaxFiguresFrom(t *testing.T) {
	calc := &models.TaxCalculation{
		QuarterlyTaxes: []models.QuarterlyTaxData{
			{Quarter: models.Q3, TotalRevenue: amount("8000"), TaxAmount: amount("1000")},
			{Quarter: models.Q1, TotalRevenue: amount("500")},
			{Quarter: models.Quarter(7), TaxAmount: amount("1")},
		},
	}

	figures := TaxFiguresFrom(2024, calc)
	assert.True(t, decimal.NewFromInt(1000).Equal(figures.For(models.Q3).TaxAmount))
	assert.True(t, decimal.NewFromInt(8000).Equal(figures.For(models.Q3).TotalRevenue))
	assert.True(t, figures.For(models.Q1).TaxAmount.IsZero())
	assert.True(t, figures.For(models.Q2).TotalRevenue.IsZero())
	assert.True(t, decimal.NewFromInt(1000).Equal(figures.TotalTaxForYear), "computed when absent")

	calc.TotalTaxForYear = amount("1200")
	assert.True(t, decimal.NewFromInt(1200).Equal(TaxFiguresFrom(2024, calc).TotalTaxForYear))

	assert.True(t, TaxFiguresFrom(2024, nil).TotalTaxForYear.IsZero())
}
