package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	bookingrepository "github.com/smallbiznis/nannyhub/internal/booking/repository"
	bookingservice "github.com/smallbiznis/nannyhub/internal/booking/service"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	escalationdomain "github.com/smallbiznis/nannyhub/internal/escalation/domain"
	invoicedomain "github.com/smallbiznis/nannyhub/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/nannyhub/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/nannyhub/internal/invoice/service"
	ledgerdomain "github.com/smallbiznis/nannyhub/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/nannyhub/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/nannyhub/internal/ledger/service"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	"github.com/smallbiznis/nannyhub/internal/payment/mocks"
	"github.com/smallbiznis/nannyhub/internal/payment/repository"
	advicedomain "github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	advicerepository "github.com/smallbiznis/nannyhub/internal/paymentadvice/repository"
	adviceservice "github.com/smallbiznis/nannyhub/internal/paymentadvice/service"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/smallbiznis/nannyhub/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubProfiles struct {
	profiledomain.Service
}

func (stubProfiles) Get(ctx context.Context, userID string) (*profiledomain.View, error) {
	return &profiledomain.View{Profile: profiledomain.Profile{
		UserID:   userID,
		FullName: userID,
		Email:    userID + "@example.com",
	}}, nil
}

type recordingNotifications struct {
	notificationdomain.Service
	sent      []notificationdomain.SendRequest
	templates []string
}

func (r *recordingNotifications) Send(ctx context.Context, req notificationdomain.SendRequest) (*notificationdomain.Notification, error) {
	r.sent = append(r.sent, req)
	return &notificationdomain.Notification{}, nil
}

func (r *recordingNotifications) SendEmail(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...email.Attachment) error {
	r.templates = append(r.templates, templateName)
	return nil
}

func (r *recordingNotifications) types() []notificationdomain.Type {
	out := make([]notificationdomain.Type, 0, len(r.sent))
	for _, req := range r.sent {
		out = append(out, req.Type)
	}
	return out
}

type recordingEscalations struct {
	escalationdomain.Service
	raised []escalationdomain.RaiseRequest
}

func (r *recordingEscalations) Raise(ctx context.Context, req escalationdomain.RaiseRequest) (*escalationdomain.Escalation, error) {
	r.raised = append(r.raised, req)
	return &escalationdomain.Escalation{BookingID: req.BookingID, Reason: req.Reason}, nil
}

type fixture struct {
	db            *gorm.DB
	node          *snowflake.Node
	clock         *clock.FakeClock
	gateway       *mocks.MockGateway
	svc           *Service
	bookings      bookingdomain.Service
	advices       advicedomain.Service
	invoices      invoicedomain.Service
	ledger        ledgerdomain.Service
	notifications *recordingNotifications
	escalations   *recordingEscalations
}

var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(start)
	log := zap.NewNop()
	notifications := &recordingNotifications{}
	escalations := &recordingEscalations{}
	gateway := mocks.NewMockGateway(gomock.NewController(t))

	bookings := bookingservice.NewService(bookingservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          bookingrepository.Provide(),
		Profiles:      stubProfiles{},
		Notifications: notifications,
		Clock:         fake,
	})
	advices := adviceservice.NewService(adviceservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          advicerepository.Provide(),
		Profiles:      stubProfiles{},
		Notifications: notifications,
		Clock:         fake,
	})
	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          invoicerepository.Provide(),
		Profiles:      stubProfiles{},
		Notifications: notifications,
		Clock:         fake,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  ledgerrepository.Provide(),
		Clock: fake,
	})

	svc := NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Cfg:           config.Config{Payment: config.PaymentConfig{Provider: "paystack", Currency: "ZAR"}},
		Repo:          repository.Provide(),
		Gateway:       gateway,
		Bookings:      bookings,
		Advices:       advices,
		Invoices:      invoices,
		LedgerSvc:     ledger,
		Escalations:   escalations,
		Notifications: notifications,
		Clock:         fake,
	}).(*Service)
	svc.retryDelay = time.Millisecond

	return &fixture{
		db:            db,
		node:          node,
		clock:         fake,
		gateway:       gateway,
		svc:           svc,
		bookings:      bookings,
		advices:       advices,
		invoices:      invoices,
		ledger:        ledger,
		notifications: notifications,
		escalations:   escalations,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) seedBooking(t *testing.T, category revenuesplit.Category, size revenuesplit.HomeSize, startDate time.Time, endDate *time.Time, totalCost int64) *bookingdomain.Booking {
	t.Helper()
	now := f.clock.Now()
	b := &bookingdomain.Booking{
		ID:                f.node.Generate(),
		ClientID:          "client-1",
		NannyID:           "nanny-1",
		Category:          category,
		Status:            bookingdomain.StatusPending,
		StartDate:         startDate,
		EndDate:           endDate,
		BaseRate:          totalCost,
		TotalCost:         totalCost,
		Currency:          "ZAR",
		HomeSize:          size,
		LivingArrangement: "live_out",
		RequiredSkills:    datatypes.NewJSONSlice([]string{"first_aid"}),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, bookingrepository.Provide().Insert(context.Background(), f.db, b))
	return b
}

func (f *fixture) seedLongTerm(t *testing.T) *bookingdomain.Booking {
	return f.seedBooking(t, revenuesplit.CategoryLongTerm, revenuesplit.HomeSizeFamilyHub, date(2026, 3, 10), nil, 800_000)
}

func (f *fixture) savePaymentMethod(t *testing.T) {
	t.Helper()
	_, err := f.svc.SavePaymentMethod(context.Background(), paymentdomain.SavePaymentMethodRequest{
		ClientID:          "client-1",
		AuthorizationCode: "AUTH_abc123xyz",
		Email:             "client-1@example.com",
	})
	require.NoError(t, err)
}

func approved() (paymentdomain.AuthorizeResult, error) {
	return paymentdomain.AuthorizeResult{Approved: true, ProviderAuthorizationID: "4099"}, nil
}

func TestAuthorizeFirstPeriodIncludesPlacementFee(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req paymentdomain.GatewayAuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
			assert.Equal(t, int64(1_050_000), req.Amount)
			assert.Equal(t, "AUTH_abc123xyz", req.AuthorizationCode)
			assert.Equal(t, "ZAR", req.Currency)
			assert.Equal(t, "2026-03-10", req.Metadata["period_start"])
			return approved()
		})

	auth, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusAuthorized, auth.Status)
	assert.Equal(t, date(2026, 3, 10), auth.PeriodStart.UTC())
	assert.Equal(t, date(2026, 3, 31), auth.PeriodEnd.UTC())
	require.NotNil(t, auth.AuthorizedAt)
	require.NotNil(t, auth.ProviderAuthorizationID)
	assert.Equal(t, "4099", *auth.ProviderAuthorizationID)

	_, err = f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyAuthorized)
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthorizeRetriesExternalErrors(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)

	timeout := apperror.External("paystack", errors.New("i/o timeout"))
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(paymentdomain.AuthorizeResult{}, timeout).Times(2)
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved())

	auth, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusAuthorized, auth.Status)
}

func TestAuthorizeGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)

	timeout := apperror.External("paystack", errors.New("i/o timeout"))
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(paymentdomain.AuthorizeResult{}, timeout).Times(3)

	_, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsExternal(err))

	page, err := f.svc.ListForBooking(context.Background(), paymentdomain.ListRequest{BookingID: b.ID})
	require.NoError(t, err)
	require.Len(t, page.Authorizations, 1)
	assert.Equal(t, paymentdomain.StatusFailed, page.Authorizations[0].Status)
	require.NotNil(t, page.Authorizations[0].FailureReason)
	assert.Equal(t, paymentdomain.FailureReasonGatewayError, *page.Authorizations[0].FailureReason)
}

func TestAuthorizeDeclineIsNotRetried(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		Return(paymentdomain.AuthorizeResult{Approved: false, Message: "Insufficient Funds"}, nil)

	declined, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrAuthorizationDeclined)
	require.NotNil(t, declined)
	assert.Equal(t, paymentdomain.StatusFailed, declined.Status)
	assert.Contains(t, f.notifications.types(), notificationdomain.TypePaymentFailed)

	booking, err := f.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusPending, booking.Status)

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved())
	retried, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)
	assert.NotEqual(t, declined.ID, retried.ID)
	assert.Equal(t, paymentdomain.StatusAuthorized, retried.Status)
}

type failingLookup struct {
	paymentdomain.Repository
	err error
}

func (r failingLookup) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Authorization, error) {
	return nil, r.err
}

func TestAuthorizeDeclineSurfacesLookupError(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)
	lookupErr := errors.New("connection reset")
	f.svc.repo = failingLookup{Repository: f.svc.repo, err: lookupErr}

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		Return(paymentdomain.AuthorizeResult{Approved: false, Message: "Do Not Honor"}, nil)

	declined, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, lookupErr)
	assert.Nil(t, declined)
}

func TestAuthorizeValidates(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)

	_, err := f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentMethodMissing)

	f.savePaymentMethod(t)
	_, err = f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID, PeriodStart: date(2026, 3, 5)})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPeriod)

	_, err = f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID, PeriodStart: date(2026, 4, 1), PeriodEnd: date(2026, 4, 15)})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPeriod)

	_, err = f.bookings.Transition(context.Background(), nil, b.ID, []bookingdomain.Status{bookingdomain.StatusPending}, bookingdomain.StatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.Authorize(context.Background(), paymentdomain.AuthorizeRequest{BookingID: b.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrBookingNotBillable)
}

func TestCaptureWritesAdviceInvoiceAndLedger(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)
	ctx := context.Background()

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved())
	auth, err := f.svc.Authorize(ctx, paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)

	f.clock.Set(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	_, err = f.svc.Capture(ctx, auth.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrCaptureTooEarly)

	f.clock.Set(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	f.gateway.EXPECT().Verify(gomock.Any(), auth.Reference).
		Return(paymentdomain.VerifyResult{Reference: auth.Reference, Paid: true, Amount: auth.Amount}, nil)

	captured, err := f.svc.Capture(ctx, auth.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCaptured, captured.Status)
	require.NotNil(t, captured.CapturedAt)

	booking, err := f.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, booking.Status)

	financials, err := f.bookings.GetFinancials(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), financials.FixedFee)
	assert.Equal(t, int64(120_000), financials.CommissionAmount)

	advices, err := f.advices.ListForNanny(ctx, advicedomain.ListRequest{NannyID: "nanny-1"})
	require.NoError(t, err)
	require.Len(t, advices.Advices, 1)
	assert.Equal(t, int64(800_000), advices.Advices[0].GrossAmount)
	assert.Equal(t, int64(120_000), advices.Advices[0].CommissionDeducted)
	assert.Equal(t, int64(680_000), advices.Advices[0].NetAmount)
	assert.NotNil(t, advices.Advices[0].DeliveredAt)

	invoices, err := f.invoices.ListForClient(ctx, invoicedomain.ListRequest{ClientID: "client-1"})
	require.NoError(t, err)
	require.Len(t, invoices.Invoices, 1)
	assert.Equal(t, int64(1_050_000), invoices.Invoices[0].TotalAmount)
	assert.Equal(t, "NH-20260310-00001", invoices.Invoices[0].InvoiceNumber)

	cash, err := f.ledger.Balance(ctx, ledgerdomain.AccountCodeCash, "ZAR")
	require.NoError(t, err)
	assert.Equal(t, int64(1_050_000), cash)
	payable, err := f.ledger.Balance(ctx, ledgerdomain.AccountCodeNannyPayable, "ZAR")
	require.NoError(t, err)
	assert.Equal(t, int64(-680_000), payable)
	fees, err := f.ledger.Balance(ctx, ledgerdomain.AccountCodePlacementFeeRevenue, "ZAR")
	require.NoError(t, err)
	assert.Equal(t, int64(-250_000), fees)

	assert.Contains(t, f.notifications.types(), notificationdomain.TypePaymentAdvice)
	assert.Contains(t, f.notifications.types(), notificationdomain.TypeInvoice)
	assert.Contains(t, f.notifications.templates, "payment_advice")
	assert.Contains(t, f.notifications.templates, "invoice")

	_, err = f.svc.Capture(ctx, auth.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrAuthorizationConflict)
}

func TestCaptureVerifyFailureEscalates(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)
	ctx := context.Background()

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved())
	auth, err := f.svc.Authorize(ctx, paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)

	f.clock.Set(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	f.gateway.EXPECT().Verify(gomock.Any(), auth.Reference).
		Return(paymentdomain.VerifyResult{Reference: auth.Reference, Paid: false, Message: "Abandoned"}, nil)

	_, err = f.svc.Capture(ctx, auth.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrCaptureUnverified)

	stored, err := f.svc.Get(ctx, auth.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, paymentdomain.FailureReasonVerifyFailed, *stored.FailureReason)

	require.Len(t, f.escalations.raised, 1)
	assert.Equal(t, escalationdomain.ReasonCaptureFailed, f.escalations.raised[0].Reason)
	assert.Contains(t, f.notifications.templates, "payment_capture_fail")

	_, err = f.bookings.GetFinancials(ctx, b.ID)
	assert.ErrorIs(t, err, bookingdomain.ErrFinancialsNotFound)
}

func TestCaptureCancelledBookingFailsHold(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)
	ctx := context.Background()

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved())
	auth, err := f.svc.Authorize(ctx, paymentdomain.AuthorizeRequest{BookingID: b.ID})
	require.NoError(t, err)

	_, err = f.bookings.Transition(ctx, nil, b.ID, []bookingdomain.Status{bookingdomain.StatusPending}, bookingdomain.StatusCancelled)
	require.NoError(t, err)

	f.clock.Set(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err = f.svc.Capture(ctx, auth.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrBookingNotBillable)

	stored, err := f.svc.Get(ctx, auth.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, paymentdomain.FailureReasonBookingCancelled, *stored.FailureReason)

	require.Len(t, f.escalations.raised, 1)
	raised := f.escalations.raised[0]
	assert.Equal(t, b.ID, raised.BookingID)
	assert.Equal(t, escalationdomain.ReasonCaptureFailed, raised.Reason)
	assert.Equal(t, paymentdomain.FailureReasonBookingCancelled, raised.Context["reason"])
	assert.Equal(t, auth.ID.String(), raised.Context["authorization_id"])
}

func TestConcurrentAuthorizeHoldsPeriodOnce(t *testing.T) {
	f := newFixture(t)
	b := f.seedLongTerm(t)
	f.savePaymentMethod(t)
	ctx := context.Background()

	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).Return(approved()).Times(1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Authorize(ctx, paymentdomain.AuthorizeRequest{BookingID: b.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, paymentdomain.ErrAlreadyAuthorized)
	}
	assert.Equal(t, 1, succeeded)

	var rows int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM payment_authorizations WHERE booking_id = ?`, b.ID).Scan(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSweepsAuthorizeAndCaptureDuePeriods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := f.seedLongTerm(t)
	end := date(2026, 3, 7)
	short := f.seedBooking(t, revenuesplit.CategoryShortTerm, revenuesplit.HomeSizePocketPalace, date(2026, 3, 5), &end, 50_000)
	f.savePaymentMethod(t)

	amounts := map[string]int64{}
	f.gateway.EXPECT().Authorize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req paymentdomain.GatewayAuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
			amounts[req.Metadata["booking_id"]+"/"+req.Metadata["period_start"]] = req.Amount
			return approved()
		}).AnyTimes()
	f.gateway.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(paymentdomain.VerifyResult{Paid: true}, nil).AnyTimes()

	result, err := f.svc.AuthorizeDue(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.SweepResult{Processed: 2, Succeeded: 2}, result)
	assert.Equal(t, int64(1_050_000), amounts[long.ID.String()+"/2026-03-10"])
	assert.Equal(t, int64(60_500), amounts[short.ID.String()+"/2026-03-05"])

	result, err = f.svc.AuthorizeDue(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)

	f.clock.Set(time.Date(2026, 3, 25, 10, 0, 0, 0, time.UTC))
	due, err := f.svc.DueForAuthorization(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, long.ID, due[0].BookingID)
	assert.Equal(t, date(2026, 4, 1), due[0].Period.Start)

	result, err = f.svc.AuthorizeDue(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, int64(800_000), amounts[long.ID.String()+"/2026-04-01"])

	captures, err := f.svc.DueForCapture(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Len(t, captures, 2)

	result, err = f.svc.CaptureDue(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.SweepResult{Processed: 2, Succeeded: 2}, result)

	f.clock.Set(time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC))
	result, err = f.svc.CaptureDue(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.SweepResult{Processed: 1, Succeeded: 1}, result)

	cash, err := f.ledger.Balance(ctx, ledgerdomain.AccountCodeCash, "ZAR")
	require.NoError(t, err)
	assert.Equal(t, int64(1_050_000+60_500+800_000), cash)
}

func TestSavePaymentMethodUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SavePaymentMethod(ctx, paymentdomain.SavePaymentMethodRequest{ClientID: "client-1", AuthorizationCode: "AUTH_one", Email: "a@example.com"})
	require.NoError(t, err)
	pm, err := f.svc.SavePaymentMethod(ctx, paymentdomain.SavePaymentMethodRequest{ClientID: "client-1", AuthorizationCode: "AUTH_two", Email: "Client <b@example.com>"})
	require.NoError(t, err)
	assert.Equal(t, "AUTH_two", pm.AuthorizationCode)
	assert.Equal(t, "b@example.com", pm.Email)
	assert.Equal(t, "paystack", pm.Provider)

	_, err = f.svc.SavePaymentMethod(ctx, paymentdomain.SavePaymentMethodRequest{ClientID: "client-1", AuthorizationCode: "AUTH_x", Email: "nope"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEmail)
	_, err = f.svc.SavePaymentMethod(ctx, paymentdomain.SavePaymentMethodRequest{ClientID: "client-1", Provider: "stripe", AuthorizationCode: "AUTH_x", Email: "a@example.com"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidProvider)
	_, err = f.svc.SavePaymentMethod(ctx, paymentdomain.SavePaymentMethodRequest{ClientID: "client-1", Email: "a@example.com"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAuthorizationCode)
}
