package ledger

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daleel/internal/api"
	"daleel/internal/checkout"
	"daleel/pkg/models"
)

var testBusiness = models.Business{ID: "biz-1", Name: "Nile Traders"}

func mount(t *testing.T, svc InvoiceService, handoff checkout.Handoff, opts ...Option) *View {
	t.Helper()
	opts = append([]Option{WithYear(2024), WithLogger(zerolog.Nop())}, opts...)
	v := Mount(context.Background(), testBusiness, svc, handoff, opts...)
	t.Cleanup(v.Unmount)
	return v
}

func waitIdle(t *testing.T, v *View) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, v.WaitIdle(ctx))
}

func snapshot(t *testing.T, v *View) State {
	t.Helper()
	s, ok := v.Snapshot()
	require.True(t, ok, "view unexpectedly unmounted")
	return s
}

func taxOf(q models.Quarter, revenue, tax string) models.QuarterlyTaxData {
	return models.QuarterlyTaxData{Quarter: q, TotalRevenue: amount(revenue), TaxAmount: amount(tax)}
}

func TestMountLoadsLedgerAndTax(t *testing.T) {
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) {
			return &models.QuarterlyInvoices{QuarterlyData: []models.QuarterData{
				{Quarter: models.Q2, Invoices: []models.Invoice{dated("a", "300", 2024, time.May, 2)}, TotalAmount: amount("300")},
			}}, nil
		},
		tax: func(context.Context, string, int) (*models.TaxCalculation, error) {
			return &models.TaxCalculation{QuarterlyTaxes: []models.QuarterlyTaxData{taxOf(models.Q2, "300", "42")}}, nil
		},
	}

	v := mount(t, svc, &checkout.Recorder{})
	waitIdle(t, v)

	s := snapshot(t, v)
	assert.Equal(t, PaneAddInvoice, s.Pane)
	assert.False(t, s.Modal.Shown)
	assert.False(t, s.LedgerLoading)
	assert.False(t, s.TaxLoading)
	assert.Equal(t, 1, s.Ledger.InvoiceCount())
	assert.True(t, decimal.NewFromInt(300).Equal(s.Ledger.GrandTotal))
	assert.True(t, decimal.NewFromInt(42).Equal(s.Taxes.For(models.Q2).TaxAmount))
	assert.Equal(t, 1, svc.count("quarterly:biz-1"))
	assert.Equal(t, 1, svc.count("tax:biz-1"))
}

func TestMountDefaultsToCurrentYear(t *testing.T) {
	var year atomic.Int64
	svc := &fakeService{
		quarterly: func(_ context.Context, _ string, y int) (*models.QuarterlyInvoices, error) {
			year.Store(int64(y))
			return &models.QuarterlyInvoices{}, nil
		},
	}
	clock := func() time.Time { return time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC) }

	v := Mount(context.Background(), testBusiness, svc, &checkout.Recorder{}, WithClock(clock), WithLogger(zerolog.Nop()))
	t.Cleanup(v.Unmount)
	waitIdle(t, v)

	assert.Equal(t, int64(2025), year.Load())
	assert.Equal(t, 2025, snapshot(t, v).Year)
}

func TestLoadsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) {
			<-release
			return &models.QuarterlyInvoices{}, nil
		},
		tax: func(context.Context, string, int) (*models.TaxCalculation, error) {
			return &models.TaxCalculation{QuarterlyTaxes: []models.QuarterlyTaxData{taxOf(models.Q1, "10", "1")}}, nil
		},
	}

	v := mount(t, svc, &checkout.Recorder{})
	require.Eventually(t, func() bool {
		s := snapshot(t, v)
		return !s.TaxLoading && s.LedgerLoading
	}, time.Second, 5*time.Millisecond, "tax figures applied while the ledger is still loading")

	close(release)
	waitIdle(t, v)
	assert.False(t, snapshot(t, v).LedgerLoading)
}

func TestFailedLoadsLeaveUsableEmptyState(t *testing.T) {
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) { return nil, errUnavailable },
		list:      func(context.Context, string) ([]models.Invoice, error) { return nil, errUnavailable },
		tax:       func(context.Context, string, int) (*models.TaxCalculation, error) { return nil, errUnavailable },
	}

	v := mount(t, svc, &checkout.Recorder{})
	waitIdle(t, v)

	s := snapshot(t, v)
	assert.Zero(t, s.Ledger.InvoiceCount())
	assert.True(t, s.Taxes.TotalTaxForYear.IsZero())

	require.NoError(t, v.SetForm(validForm()))
	require.NoError(t, v.Submit())
	waitIdle(t, v)
	assert.Equal(t, 1, svc.count("add"))
}

func TestMountWithoutBusinessSendsNothing(t *testing.T) {
	svc := &fakeService{}
	v := Mount(context.Background(), models.Business{}, svc, &checkout.Recorder{}, WithYear(2024), WithLogger(zerolog.Nop()))
	t.Cleanup(v.Unmount)
	waitIdle(t, v)

	assert.Empty(t, svc.Calls())
	for _, b := range snapshot(t, v).Ledger.Quarters {
		assert.Empty(t, b.Invoices)
	}
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	for _, value := range []string{"0", "-5"} {
		t.Run(value, func(t *testing.T) {
			svc := &fakeService{}
			v := mount(t, svc, &checkout.Recorder{})
			waitIdle(t, v)

			form := validForm()
			form.TotalAmount = value
			require.NoError(t, v.SetForm(form))
			require.NoError(t, v.Submit())
			waitIdle(t, v)

			s := snapshot(t, v)
			require.NotNil(t, s.Validation)
			assert.Equal(t, FieldTotalAmount, s.Validation.Field)
			assert.Equal(t, MsgInvalidAmount, s.Validation.Message)
			assert.False(t, s.Submitting)
			assert.Equal(t, value, s.Form.TotalAmount)
			assert.Zero(t, svc.count("add"))
		})
	}
}

func TestSubmitRefreshesAfterAcknowledgment(t *testing.T) {
	release := make(chan struct{})
	svc := &fakeService{
		add: func(_ context.Context, inv models.NewInvoice) (*models.Invoice, error) {
			<-release
			return &models.Invoice{ID: "srv-1", InvoiceUUID: inv.InvoiceUUID}, nil
		},
	}

	v := mount(t, svc, &checkout.Recorder{}, WithIDGenerator(func() string { return "uuid-1" }))
	waitIdle(t, v)
	mountCalls := len(svc.Calls())

	require.NoError(t, v.SetForm(validForm()))
	require.NoError(t, v.Submit())
	require.Eventually(t, func() bool { return svc.count("add") == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, snapshot(t, v).Submitting)

	// Nothing is refreshed before the add is acknowledged.
	require.Never(t, func() bool { return len(svc.Calls()) > mountCalls+1 }, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	waitIdle(t, v)

	after := svc.Calls()[mountCalls:]
	require.Len(t, after, 3)
	assert.Equal(t, "add", after[0])
	assert.ElementsMatch(t, []string{"quarterly:biz-1", "tax:biz-1"}, after[1:])

	s := snapshot(t, v)
	assert.False(t, s.Submitting)
	assert.Equal(t, MsgInvoiceAdded, s.Success)
	assert.True(t, s.Form.IsEmpty())
	assert.Nil(t, s.Validation)

	require.Len(t, svc.added, 1)
	assert.Equal(t, "uuid-1", svc.added[0].InvoiceUUID)
	assert.Equal(t, "biz-1", svc.added[0].BusinessID)
}

func TestSubmitWhileInFlightIsIgnored(t *testing.T) {
	release := make(chan struct{})
	svc := &fakeService{
		add: func(context.Context, models.NewInvoice) (*models.Invoice, error) {
			<-release
			return nil, nil
		},
	}

	v := mount(t, svc, &checkout.Recorder{})
	waitIdle(t, v)
	require.NoError(t, v.SetForm(validForm()))
	require.NoError(t, v.Submit())
	require.NoError(t, v.Submit())
	require.NoError(t, v.Submit())

	close(release)
	waitIdle(t, v)
	assert.Equal(t, 1, svc.count("add"))
}

func TestSubmitFailurePreservesForm(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "server message",
			err:     &api.APIError{Op: "AddInvoice", StatusCode: http.StatusConflict, Message: "Invoice already exists", Err: api.ErrUnexpectedStatus},
			message: "Invoice already exists",
		},
		{
			name:    "generic fallback",
			err:     errors.New("connection reset"),
			message: MsgSubmitFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				add: func(context.Context, models.NewInvoice) (*models.Invoice, error) { return nil, tt.err },
			}
			v := mount(t, svc, &checkout.Recorder{})
			waitIdle(t, v)
			mountCalls := len(svc.Calls())

			require.NoError(t, v.SetForm(validForm()))
			require.NoError(t, v.Submit())
			waitIdle(t, v)

			s := snapshot(t, v)
			assert.Equal(t, tt.message, s.SubmitError)
			assert.Empty(t, s.Success)
			assert.False(t, s.Submitting)
			assert.Equal(t, validForm(), s.Form)
			assert.Equal(t, []string{"add"}, svc.Calls()[mountCalls:], "no refresh after a failed add")
		})
	}
}

func TestPaneSwitchKeepsForm(t *testing.T) {
	v := mount(t, &fakeService{}, &checkout.Recorder{})
	require.NoError(t, v.SetField(FieldInvoiceNumber, "INV-42"))
	require.NoError(t, v.SelectPane(PaneQ3))

	s := snapshot(t, v)
	assert.Equal(t, PaneQ3, s.Pane)
	bucket, ok := s.Visible()
	require.True(t, ok)
	assert.Equal(t, models.Q3, bucket.Quarter)

	require.NoError(t, v.SelectPane(PaneAddInvoice))
	s = snapshot(t, v)
	assert.Equal(t, "INV-42", s.Form.InvoiceNumber)
	_, ok = s.Visible()
	assert.False(t, ok)

	assert.Error(t, v.SelectPane(Pane(9)))
	assert.Error(t, v.SetField("amount", "1"))
}

func TestDisclosureCancelHasNoSideEffect(t *testing.T) {
	svc := &fakeService{
		tax: func(context.Context, string, int) (*models.TaxCalculation, error) {
			return &models.TaxCalculation{QuarterlyTaxes: []models.QuarterlyTaxData{taxOf(models.Q2, "4000", "560")}}, nil
		},
	}
	rec := &checkout.Recorder{}
	v := mount(t, svc, rec)
	waitIdle(t, v)
	before := snapshot(t, v).Taxes

	require.NoError(t, v.RequestTaxDisclosure(models.Q2))
	s := snapshot(t, v)
	require.True(t, s.Modal.Shown)
	assert.Equal(t, models.Q2, s.Modal.Quarter)
	assert.Contains(t, s.Modal.Notice, "5%")
	assert.Contains(t, s.Modal.Notice, "Q2 (April - June)")

	require.NoError(t, v.CancelDisclosure())
	s = snapshot(t, v)
	assert.False(t, s.Modal.Shown)
	assert.False(t, s.Departed)
	assert.Equal(t, before, s.Taxes)
	assert.Empty(t, rec.Intents())

	assert.Error(t, v.RequestTaxDisclosure(models.Quarter(0)))
}

func TestAgreeHandsOffIntentAndUnmounts(t *testing.T) {
	svc := &fakeService{
		tax: func(context.Context, string, int) (*models.TaxCalculation, error) {
			return &models.TaxCalculation{QuarterlyTaxes: []models.QuarterlyTaxData{taxOf(models.Q3, "7142.86", "1000")}}, nil
		},
	}
	rec := &checkout.Recorder{}
	v := mount(t, svc, rec)
	waitIdle(t, v)

	require.NoError(t, v.RequestTaxDisclosure(models.Q3))
	require.True(t, v.Agree())

	intent, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "biz-1", intent.BusinessID)
	assert.Equal(t, "Nile Traders", intent.BusinessName)
	assert.Equal(t, models.Q3, intent.Quarter)
	assert.Equal(t, "Q3 (July - September)", intent.QuarterLabel)
	assert.True(t, decimal.NewFromInt(1000).Equal(intent.TaxAmount))
	assert.True(t, decimal.RequireFromString("7142.86").Equal(intent.Revenue))
	assert.True(t, decimal.NewFromInt(50).Equal(intent.ServiceFee))
	assert.True(t, decimal.NewFromInt(1050).Equal(intent.TotalAmount))

	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("view still mounted after agreement")
	}
	s, mounted := v.Snapshot()
	assert.False(t, mounted)
	assert.True(t, s.Departed)
	assert.False(t, s.Modal.Shown)
	assert.ErrorIs(t, v.SelectPane(PaneQ1), ErrUnmounted)
}

func TestAgreeWithoutModalDoesNothing(t *testing.T) {
	rec := &checkout.Recorder{}
	v := mount(t, &fakeService{}, rec)
	assert.False(t, v.Agree())
	assert.Empty(t, rec.Intents())
	assert.False(t, snapshot(t, v).Departed)
}

func TestUnmountDiscardsPendingLoad(t *testing.T) {
	release := make(chan struct{})
	returned := make(chan struct{})
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) {
			<-release
			defer close(returned)
			return &models.QuarterlyInvoices{QuarterlyData: []models.QuarterData{
				{Quarter: models.Q1, Invoices: []models.Invoice{dated("late", "10", 2024, time.January, 1)}},
			}}, nil
		},
	}

	var notified atomic.Int32
	v := mount(t, svc, &checkout.Recorder{}, WithObserver(func(State) { notified.Add(1) }))
	require.Eventually(t, func() bool {
		s := snapshot(t, v)
		return !s.TaxLoading
	}, time.Second, 5*time.Millisecond)

	v.Unmount()
	seen := notified.Load()

	close(release)
	<-returned
	require.Never(t, func() bool { return notified.Load() != seen }, 100*time.Millisecond, 10*time.Millisecond)

	s, mounted := v.Snapshot()
	assert.False(t, mounted)
	assert.Zero(t, s.Ledger.InvoiceCount())
	assert.True(t, s.LedgerLoading)
	assert.ErrorIs(t, v.WaitIdle(context.Background()), ErrUnmounted)
}

func TestUnmountDuringRefreshAbandonsSubmit(t *testing.T) {
	var calls atomic.Int32
	refreshing := make(chan struct{})
	returned := make(chan struct{})
	svc := &fakeService{
		quarterly: func(ctx context.Context, _ string, _ int) (*models.QuarterlyInvoices, error) {
			if calls.Add(1) == 1 {
				return &models.QuarterlyInvoices{}, nil
			}
			close(refreshing)
			<-ctx.Done()
			defer close(returned)
			return nil, ctx.Err()
		},
	}

	var notified atomic.Int32
	v := mount(t, svc, &checkout.Recorder{}, WithObserver(func(State) { notified.Add(1) }))
	waitIdle(t, v)

	require.NoError(t, v.SetForm(validForm()))
	require.NoError(t, v.Submit())
	<-refreshing

	v.Unmount()
	seen := notified.Load()
	<-returned
	require.Never(t, func() bool { return notified.Load() != seen }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 0, svc.count("list:biz-1"))

	s, mounted := v.Snapshot()
	assert.False(t, mounted)
	assert.True(t, s.Submitting)
	assert.Empty(t, s.Success)
	assert.False(t, s.Form.IsEmpty())
}

func TestSupersededLedgerResponseIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	releaseFirst := make(chan struct{})
	svc := &fakeService{
		quarterly: func(context.Context, string, int) (*models.QuarterlyInvoices, error) {
			if calls.Add(1) == 1 {
				<-releaseFirst
				return &models.QuarterlyInvoices{QuarterlyData: []models.QuarterData{
					{Quarter: models.Q1, Invoices: []models.Invoice{dated("stale", "1", 2024, time.January, 1)}},
				}}, nil
			}
			return &models.QuarterlyInvoices{QuarterlyData: []models.QuarterData{
				{Quarter: models.Q4, Invoices: []models.Invoice{dated("fresh", "2", 2024, time.October, 1)}},
			}}, nil
		},
	}

	v := mount(t, svc, &checkout.Recorder{})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, v.Reload())
	require.Eventually(t, func() bool { return snapshot(t, v).Ledger.InvoiceCount() == 1 }, time.Second, 5*time.Millisecond)

	close(releaseFirst)
	waitIdle(t, v)

	s := snapshot(t, v)
	assert.Equal(t, []string{"fresh"}, ids(s.Ledger.Bucket(models.Q4).Invoices))
	assert.Empty(t, s.Ledger.Bucket(models.Q1).Invoices)
	assert.False(t, s.LedgerLoading)
}

func TestObserverSeesEveryChange(t *testing.T) {
	states := make(chan State, 32)
	v := mount(t, &fakeService{}, &checkout.Recorder{}, WithObserver(func(s State) { states <- s }))
	waitIdle(t, v)
	require.NoError(t, v.SelectPane(PaneQ1))

	var last State
	require.Eventually(t, func() bool {
		for {
			select {
			case last = <-states:
			default:
				return last.Pane == PaneQ1
			}
		}
	}, time.Second, 5*time.Millisecond)
}
