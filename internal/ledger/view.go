// Package ledger implements the quarterly ledger view of one business:
// invoices grouped by calendar quarter, the backend's tax figures, the
// add-invoice form and the service-fee disclosure gate in front of checkout.
//
// A View is an actor. One goroutine owns its State; UI operations and
// network completions are messages applied one at a time.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"daleel/internal/checkout"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

// Observer is notified with a snapshot after every applied change. It runs
// on the view goroutine and must not call back into the view.
type Observer func(State)

// Option configures a View.
type Option func(*View)

// WithYear selects the ledger year. The default is the current year.
func WithYear(year int) Option {
	return func(v *View) { v.year = year }
}

// WithClock replaces time.Now for the default year.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// WithObserver registers fn for state change notifications.
func WithObserver(fn Observer) Option {
	return func(v *View) { v.observer = fn }
}

// WithIDGenerator replaces the invoice correlation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(v *View) { v.newID = fn }
}

// WithLogger replaces the view logger.
func WithLogger(log zerolog.Logger) Option {
	return func(v *View) { v.log = log }
}

// View is a mounted ledger view.
type View struct {
	svc      InvoiceService
	handoff  checkout.Handoff
	observer Observer
	newID    func() string
	now      func() time.Time
	year     int
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// owned by the view goroutine
	state     State
	ledgerSeq uint64
	taxSeq    uint64
	inflight  int
	waiters   []chan struct{}
}

// Mount creates the view for business in the add-invoice pane and starts
// loading the ledger and the tax figures. ctx bounds the view's requests.
func Mount(ctx context.Context, business models.Business, svc InvoiceService, handoff checkout.Handoff, opts ...Option) *View {
	v := &View{
		svc:     svc,
		handoff: handoff,
		newID:   uuid.NewString,
		now:     time.Now,
		inbox:   make(chan func()),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	v.log = logger.WithBusiness("ledger", business.ID)
	for _, opt := range opts {
		opt(v)
	}
	if v.year == 0 {
		v.year = v.now().Year()
	}
	v.ctx, v.cancel = context.WithCancel(ctx)

	v.state = State{
		Business: business,
		Year:     v.year,
		Pane:     PaneAddInvoice,
		Ledger:   models.EmptyLedger(business.ID, v.year),
		Taxes:    models.ZeroTaxFigures(v.year),
	}

	v.log.Debug().Int("year", v.year).Msg("Mounting ledger view")
	v.startLedgerLoad()
	v.startTaxLoad()
	go v.run()
	return v
}

func (v *View) run() {
	defer close(v.stopped)
	for {
		select {
		case <-v.done:
			return
		case fn := <-v.inbox:
			if v.unmounted() {
				return
			}
			fn()
		}
	}
}

func (v *View) unmounted() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// post delivers fn to the view goroutine. It is dropped once the view is gone.
func (v *View) post(fn func()) {
	select {
	case v.inbox <- fn:
	case <-v.done:
	}
}

// call runs fn on the view goroutine and waits for it.
func (v *View) call(fn func()) error {
	ack := make(chan struct{})
	select {
	case v.inbox <- func() { fn(); close(ack) }:
	case <-v.done:
		return ErrUnmounted
	}
	select {
	case <-ack:
		return nil
	case <-v.stopped:
		select {
		case <-ack:
			return nil
		default:
			return ErrUnmounted
		}
	}
}

func (v *View) notify() {
	if v.observer == nil || v.unmounted() {
		return
	}
	v.observer(v.state.clone())
}

func (v *View) shutdown() {
	v.once.Do(func() {
		close(v.done)
		v.cancel()
	})
}

// Unmount stops the view. Responses arriving later are discarded and the
// observer is not called again. Unmount is idempotent.
func (v *View) Unmount() {
	v.shutdown()
	<-v.stopped
	v.log.Debug().Msg("Ledger view unmounted")
}

// Done is closed once the view is unmounted, including after Agree.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Snapshot returns a copy of the current state. After unmount it returns
// the final state and false.
func (v *View) Snapshot() (State, bool) {
	var s State
	if err := v.call(func() { s = v.state.clone() }); err != nil {
		<-v.stopped
		return v.state.clone(), false
	}
	return s, true
}

// WaitIdle blocks until no request of the view is in flight.
func (v *View) WaitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	err := v.call(func() {
		if v.inflight == 0 {
			close(idle)
			return
		}
		v.waiters = append(v.waiters, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		if v.unmounted() {
			return ErrUnmounted
		}
		return nil
	case <-v.stopped:
		return ErrUnmounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *View) begin() {
	v.inflight++
}

func (v *View) end() {
	v.inflight--
	if v.inflight > 0 {
		return
	}
	for _, w := range v.waiters {
		close(w)
	}
	v.waiters = nil
}

func (v *View) startLedgerLoad() {
	v.ledgerSeq++
	seq := v.ledgerSeq
	businessID, year := v.state.Business.ID, v.year
	v.state.LedgerLoading = true
	v.begin()

	go func() {
		l := LoadLedger(v.ctx, v.svc, businessID, year, v.log)
		v.post(func() { v.applyLedger(seq, l) })
	}()
}

func (v *View) startTaxLoad() {
	v.taxSeq++
	seq := v.taxSeq
	businessID, year := v.state.Business.ID, v.year
	v.state.TaxLoading = true
	v.begin()

	go func() {
		t := LoadTaxFigures(v.ctx, v.svc, businessID, year, v.log)
		v.post(func() { v.applyTax(seq, t) })
	}()
}

func (v *View) applyLedger(seq uint64, l models.Ledger) {
	defer v.end()
	if seq != v.ledgerSeq {
		v.log.Debug().Uint64("seq", seq).Uint64("current", v.ledgerSeq).Msg("Discarding superseded ledger response")
		return
	}
	v.state.Ledger = l
	v.state.LedgerLoading = false
	v.notify()
}

func (v *View) applyTax(seq uint64, t models.TaxFigures) {
	defer v.end()
	if seq != v.taxSeq {
		v.log.Debug().Uint64("seq", seq).Uint64("current", v.taxSeq).Msg("Discarding superseded tax response")
		return
	}
	v.state.Taxes = t
	v.state.TaxLoading = false
	v.notify()
}

// Reload fetches the ledger and the tax figures again.
func (v *View) Reload() error {
	return v.call(func() {
		v.startLedgerLoad()
		v.startTaxLoad()
		v.notify()
	})
}

// SelectPane switches the right pane. The form is kept.
func (v *View) SelectPane(p Pane) error {
	if p < PaneAddInvoice || p > PaneQ4 {
		return fmt.Errorf("unknown pane %d", int(p))
	}
	return v.call(func() {
		if v.state.Pane == p {
			return
		}
		v.state.Pane = p
		v.notify()
	})
}

// SetField updates one form field.
func (v *View) SetField(field, value string) error {
	var setErr error
	err := v.call(func() {
		if setErr = v.state.Form.Set(field, value); setErr != nil {
			return
		}
		v.notify()
	})
	if err != nil {
		return err
	}
	return setErr
}

// SetForm replaces the fields of the form that are non-empty in f.
func (v *View) SetForm(f InvoiceForm) error {
	return v.call(func() {
		v.state.Form.Merge(f)
		v.notify()
	})
}

// Submit validates the form and sends the invoice. A validation failure is
// stored in the state and sends nothing. Submit while a submission is in
// flight is ignored.
func (v *View) Submit() error {
	return v.call(func() {
		if v.state.Submitting {
			v.log.Debug().Msg("Submission already in flight, ignoring submit")
			return
		}
		v.state.SubmitError = ""
		v.state.Success = ""

		payload, verr := v.state.Form.Validate(v.state.Business.ID)
		v.state.Validation = verr
		if verr != nil {
			v.notify()
			return
		}
		payload.InvoiceUUID = v.newID()

		v.state.Submitting = true
		v.begin()
		v.notify()

		v.log.Info().
			Str("invoice_uuid", payload.InvoiceUUID).
			Str("invoice_number", payload.InvoiceNumber).
			Msg("Submitting invoice")

		go func() {
			created, err := v.svc.AddInvoice(v.ctx, payload)
			if err != nil {
				v.post(func() { v.submitFailed(err) })
				return
			}
			v.post(func() { v.submitAcknowledged(created) })
		}()
	})
}

func (v *View) submitFailed(err error) {
	defer v.end()
	serr := newSubmissionError(err)
	v.log.Warn().Err(err).Msg("Invoice submission failed")
	v.state.SubmitError = serr.Message
	v.state.Submitting = false
	v.notify()
}

// submitAcknowledged refreshes the ledger and the tax figures. The refresh
// pair runs concurrently and the submission completes after both.
func (v *View) submitAcknowledged(created *models.Invoice) {
	if created != nil {
		v.log.Info().Str("invoice_id", created.ID).Msg("Invoice added")
	}

	v.ledgerSeq++
	v.taxSeq++
	lseq, tseq := v.ledgerSeq, v.taxSeq
	businessID, year := v.state.Business.ID, v.year
	v.state.LedgerLoading = true
	v.state.TaxLoading = true
	v.begin()
	v.begin()
	v.notify()

	go func() {
		g, ctx := errgroup.WithContext(v.ctx)
		g.Go(func() error {
			l := LoadLedger(ctx, v.svc, businessID, year, v.log)
			v.post(func() { v.applyLedger(lseq, l) })
			return ctx.Err()
		})
		g.Go(func() error {
			t := LoadTaxFigures(ctx, v.svc, businessID, year, v.log)
			v.post(func() { v.applyTax(tseq, t) })
			return ctx.Err()
		})
		if err := g.Wait(); err != nil {
			// The view went away mid-refresh; the submission is never reported as finished
			v.log.Debug().Err(err).Msg("Refresh after submit abandoned")
			return
		}
		v.post(v.submitFinished)
	}()
}

func (v *View) submitFinished() {
	defer v.end()
	v.state.Form = InvoiceForm{}
	v.state.Success = MsgInvoiceAdded
	v.state.Submitting = false
	v.notify()
}

// RequestTaxDisclosure shows the service-fee notice for q.
func (v *View) RequestTaxDisclosure(q models.Quarter) error {
	if !q.Valid() {
		return fmt.Errorf("invalid quarter %d", int(q))
	}
	return v.call(func() {
		v.state.Modal = Modal{Shown: true, Quarter: q, Notice: DisclosureNotice(q)}
		v.notify()
	})
}

// CancelDisclosure hides the notice.
func (v *View) CancelDisclosure() error {
	return v.call(func() {
		if !v.state.Modal.Shown {
			return
		}
		v.state.Modal = Modal{}
		v.notify()
	})
}

// Agree accepts the service fee for the quarter of the shown notice. The
// payment intent is handed to checkout and the view unmounts. Agree without
// a shown notice does nothing and reports false.
func (v *View) Agree() bool {
	handed := false
	_ = v.call(func() {
		if !v.state.Modal.Shown {
			return
		}
		q := v.state.Modal.Quarter
		intent := models.NewTaxPaymentIntent(v.state.Business, v.state.Taxes.For(q))

		v.log.Info().
			Str("quarter", q.String()).
			Str("service_fee", intent.ServiceFee.StringFixed(2)).
			Msg("Service fee accepted, handing off to checkout")
		v.handoff.Begin(intent)
		handed = true

		v.state.Modal = Modal{}
		v.state.Departed = true
		v.notify()
		v.shutdown()
	})
	return handed
}
