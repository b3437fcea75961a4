package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() InvoiceForm {
	return InvoiceForm{
		InvoiceNumber: "INV-001",
		IssuerName:    "Cairo Supplies",
		ReceiverName:  "Nile Traders",
		TotalAmount:   "1250.75",
		InvoiceDate:   "2024-08-14",
	}
}

func TestValidateBuildsPayload(t *testing.T) {
	f := validForm()
	f.IssuerName = "  Cairo Supplies "

	inv, verr := f.Validate("biz-1")
	require.Nil(t, verr)
	assert.Equal(t, "biz-1", inv.BusinessID)
	assert.Equal(t, "Cairo Supplies", inv.IssuerName)
	assert.True(t, decimal.RequireFromString("1250.75").Equal(inv.TotalAmount.Value))
	assert.Equal(t, time.August, inv.InvoiceDate.Month())
	assert.Empty(t, inv.InvoiceUUID)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*InvoiceForm)
		field   string
		message string
	}{
		{"empty number", func(f *InvoiceForm) { f.InvoiceNumber = "" }, FieldInvoiceNumber, MsgMissingFields},
		{"blank issuer", func(f *InvoiceForm) { f.IssuerName = "   " }, FieldIssuerName, MsgMissingFields},
		{"empty receiver", func(f *InvoiceForm) { f.ReceiverName = "" }, FieldReceiverName, MsgMissingFields},
		{"empty date", func(f *InvoiceForm) { f.InvoiceDate = "" }, FieldInvoiceDate, MsgMissingFields},
		{"zero amount", func(f *InvoiceForm) { f.TotalAmount = "0" }, FieldTotalAmount, MsgInvalidAmount},
		{"negative amount", func(f *InvoiceForm) { f.TotalAmount = "-5" }, FieldTotalAmount, MsgInvalidAmount},
		{"text amount", func(f *InvoiceForm) { f.TotalAmount = "twelve" }, FieldTotalAmount, MsgInvalidAmount},
		{"bad date", func(f *InvoiceForm) { f.InvoiceDate = "14/08/2024" }, FieldInvoiceDate, MsgInvalidDate},
		{"impossible date", func(f *InvoiceForm) { f.InvoiceDate = "2024-02-30" }, FieldInvoiceDate, MsgInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			_, verr := f.Validate("biz-1")
			require.NotNil(t, verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestFormSetAndMerge(t *testing.T) {
	var f InvoiceForm
	assert.True(t, f.IsEmpty())
	require.NoError(t, f.Set(FieldIssuerName, "Cairo Supplies"))
	assert.Error(t, f.Set("amount", "1"))

	f.Merge(InvoiceForm{InvoiceNumber: "INV-9", IssuerName: ""})
	assert.Equal(t, "INV-9", f.InvoiceNumber)
	assert.Equal(t, "Cairo Supplies", f.IssuerName)
	assert.False(t, f.IsEmpty())
}

func TestParsePane(t *testing.T) {
	p, err := ParsePane("add")
	require.NoError(t, err)
	assert.Equal(t, PaneAddInvoice, p)

	p, err = ParsePane("q3")
	require.NoError(t, err)
	q, ok := p.Quarter()
	require.True(t, ok)
	assert.Equal(t, "Q3", q.String())

	_, err = ParsePane("q5")
	assert.Error(t, err)
}
