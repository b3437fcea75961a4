package models

import "github.com/shopspring/decimal"

// ServiceFeeRate is the flat surcharge on the computed tax amount.
var ServiceFeeRate = decimal.RequireFromString("0.05")

// QuarterlyTax is the backend's tax computation for one quarter.
type QuarterlyTax struct {
	Quarter      Quarter         `json:"quarter"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TaxAmount    decimal.Decimal `json:"taxAmount"`
}

// TaxFigures holds the tax computation for all four quarters of a year.
// Missing quarters are zero.
type TaxFigures struct {
	Year            int             `json:"year"`
	Quarters        [4]QuarterlyTax `json:"quarters"`
	TotalTaxForYear decimal.Decimal `json:"totalTaxForYear"`
}

// ZeroTaxFigures returns figures with every amount set to zero.
func ZeroTaxFigures(year int) TaxFigures {
	t := TaxFigures{Year: year, TotalTaxForYear: decimal.Zero}
	for _, q := range Quarters {
		t.Quarters[q.Index()] = QuarterlyTax{Quarter: q, TotalRevenue: decimal.Zero, TaxAmount: decimal.Zero}
	}
	return t
}

// For returns the figures of quarter q. It panics on an invalid quarter.
func (t TaxFigures) For(q Quarter) QuarterlyTax {
	return t.Quarters[q.Index()]
}

// TaxCalculation is the payload of the backend's tax calculation endpoint.
type TaxCalculation struct {
	QuarterlyTaxes  []QuarterlyTaxData `json:"quarterlyTaxes"`
	TotalTaxForYear Amount             `json:"totalTaxForYear"`
}

type QuarterlyTaxData struct {
	Quarter      Quarter `json:"quarter"`
	TotalRevenue Amount  `json:"totalRevenue"`
	TaxAmount    Amount  `json:"taxAmount"`
}

// TaxPaymentIntent is handed to checkout once the user agrees to the service fee.
// It is never persisted.
type TaxPaymentIntent struct {
	BusinessID   string          `json:"businessId"`
	BusinessName string          `json:"businessName"`
	Quarter      Quarter         `json:"quarter"`
	QuarterLabel string          `json:"quarterLabel"`
	TaxAmount    decimal.Decimal `json:"taxAmount"`
	Revenue      decimal.Decimal `json:"revenue"`
	ServiceFee   decimal.Decimal `json:"serviceFee"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
}

// NewTaxPaymentIntent builds the intent for quarter tax.Quarter of business b.
// The service fee is rounded to piasters.
func NewTaxPaymentIntent(b Business, tax QuarterlyTax) TaxPaymentIntent {
	fee := tax.TaxAmount.Mul(ServiceFeeRate).Round(2)
	return TaxPaymentIntent{
		BusinessID:   b.ID,
		BusinessName: b.Name,
		Quarter:      tax.Quarter,
		QuarterLabel: tax.Quarter.Label(),
		TaxAmount:    tax.TaxAmount,
		Revenue:      tax.TotalRevenue,
		ServiceFee:   fee,
		TotalAmount:  tax.TaxAmount.Add(fee),
	}
}
