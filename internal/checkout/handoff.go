// Package checkout receives tax payment intents from the ledger view.
// The handoff is one way: the view never waits for a checkout result.
package checkout

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"daleel/internal/logger"
	"daleel/pkg/models"
)

// Handoff starts checkout for an intent. Begin must not block.
type Handoff interface {
	Begin(intent models.TaxPaymentIntent)
}

// HandoffFunc adapts a function to the Handoff interface.
type HandoffFunc func(models.TaxPaymentIntent)

// Begin calls f(intent).
func (f HandoffFunc) Begin(intent models.TaxPaymentIntent) {
	f(intent)
}

// JSONWriter prints each intent as indented JSON, the form the checkout
// page consumes as navigation state.
type JSONWriter struct {
	mu  sync.Mutex
	w   io.Writer
	log zerolog.Logger
}

// NewJSONWriter creates a JSONWriter writing to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{
		w:   w,
		log: logger.WithComponent("checkout"),
	}
}

// Begin writes intent. Write failures are logged.
func (j *JSONWriter) Begin(intent models.TaxPaymentIntent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(intent); err != nil {
		j.log.Error().Err(err).Str("business_id", intent.BusinessID).Msg("Failed to write payment intent")
		return
	}

	j.log.Info().
		Str("business_id", intent.BusinessID).
		Str("quarter", intent.Quarter.String()).
		Str("total", intent.TotalAmount.StringFixed(2)).
		Msg("Handed payment intent to checkout")
}

// Recorder keeps every intent it receives.
type Recorder struct {
	mu      sync.Mutex
	intents []models.TaxPaymentIntent
}

// Begin records intent.
func (r *Recorder) Begin(intent models.TaxPaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
}

// Intents returns a copy of the recorded intents.
func (r *Recorder) Intents() []models.TaxPaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TaxPaymentIntent(nil), r.intents...)
}

// Last returns the most recent intent.
func (r *Recorder) Last() (models.TaxPaymentIntent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.intents) == 0 {
		return models.TaxPaymentIntent{}, false
	}
	return r.intents[len(r.intents)-1], true
}
