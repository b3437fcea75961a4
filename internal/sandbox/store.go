package sandbox

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daleel/pkg/models"
)

// ErrDuplicateInvoice is returned when an invoice UUID was already stored.
var ErrDuplicateInvoice = errors.New("invoice already exists")

// Store keeps invoices in memory, per business, in insertion order.
type Store struct {
	mu       sync.RWMutex
	invoices map[string][]models.Invoice
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		invoices: make(map[string][]models.Invoice),
		now:      time.Now,
	}
}

// Add stores inv and returns it with server-assigned fields filled in.
func (s *Store) Add(inv models.NewInvoice) (models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.InvoiceUUID != "" {
		for _, existing := range s.invoices[inv.BusinessID] {
			if existing.InvoiceUUID == inv.InvoiceUUID {
				return models.Invoice{}, ErrDuplicateInvoice
			}
		}
	}

	date := inv.InvoiceDate
	created := models.Date{Time: s.now().UTC()}
	stored := models.Invoice{
		ID:            uuid.NewString(),
		BusinessID:    inv.BusinessID,
		InvoiceUUID:   inv.InvoiceUUID,
		InvoiceNumber: inv.InvoiceNumber,
		IssuerName:    inv.IssuerName,
		ReceiverName:  inv.ReceiverName,
		TotalAmount:   inv.TotalAmount,
		InvoiceDate:   &date,
		CreatedAt:     &created,
	}
	s.invoices[inv.BusinessID] = append(s.invoices[inv.BusinessID], stored)
	return stored, nil
}

// Seed stores invoices as they are, for fixtures and legacy records.
func (s *Store) Seed(businessID string, invoices ...models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[businessID] = append(s.invoices[businessID], invoices...)
}

// List returns a copy of a business's invoices.
func (s *Store) List(businessID string) []models.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Invoice{}, s.invoices[businessID]...)
}

// quarterData groups a business's invoices of year by calendar quarter.
func (s *Store) quarterData(businessID string, year int) ([4]models.QuarterData, decimal.Decimal) {
	var out [4]models.QuarterData
	totals := [4]decimal.Decimal{}
	for _, q := range models.Quarters {
		out[q.Index()] = models.QuarterData{Quarter: q, Invoices: []models.Invoice{}}
	}

	for _, inv := range s.List(businessID) {
		when, ok := inv.EffectiveDate()
		if !ok || when.Year() != year {
			continue
		}
		idx := models.QuarterOf(when).Index()
		out[idx].Invoices = append(out[idx].Invoices, inv)
		totals[idx] = totals[idx].Add(inv.TotalAmount.OrZero())
	}

	grand := decimal.Zero
	for i := range out {
		out[i].TotalAmount = models.NewAmount(totals[i])
		grand = grand.Add(totals[i])
	}
	return out, grand
}
