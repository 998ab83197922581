package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"github.com/smallbiznis/nannyhub/internal/audit/masking"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	escalationdomain "github.com/smallbiznis/nannyhub/internal/escalation/domain"
	"github.com/smallbiznis/nannyhub/internal/events"
	invoicedomain "github.com/smallbiznis/nannyhub/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/nannyhub/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	advicedomain "github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout        = "2006-01-02"
	sweepPageSize     = 100
	defaultRetryDelay = 250 * time.Millisecond
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Cfg           config.Config
	Repo          paymentdomain.Repository
	Gateway       paymentdomain.Gateway
	Bookings      bookingdomain.Service
	Advices       advicedomain.Service
	Invoices      invoicedomain.Service
	LedgerSvc     ledgerdomain.Service
	Escalations   escalationdomain.Service
	Notifications notificationdomain.Service
	Policy        *config.PolicyHolder `optional:"true"`
	AuditSvc      auditdomain.Service  `optional:"true"`
	Events        events.Publisher     `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics  `optional:"true"`
	Clock         clock.Clock          `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	provider      string
	currency      string
	repo          paymentdomain.Repository
	gateway       paymentdomain.Gateway
	bookings      bookingdomain.Service
	advices       advicedomain.Service
	invoices      invoicedomain.Service
	ledgerSvc     ledgerdomain.Service
	escalations   escalationdomain.Service
	notifications notificationdomain.Service
	policy        *config.PolicyHolder
	auditSvc      auditdomain.Service
	events        events.Publisher
	obsMetrics    *obsmetrics.Metrics
	clock         clock.Clock
	retryDelay    time.Duration
}

func NewService(p Params) paymentdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	provider := strings.ToLower(strings.TrimSpace(p.Cfg.Payment.Provider))
	if provider == "" {
		provider = "sandbox"
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Payment.Currency))
	if currency == "" {
		currency = "ZAR"
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		provider:      provider,
		currency:      currency,
		repo:          p.Repo,
		gateway:       p.Gateway,
		bookings:      p.Bookings,
		advices:       p.Advices,
		invoices:      p.Invoices,
		ledgerSvc:     p.LedgerSvc,
		escalations:   p.Escalations,
		notifications: p.Notifications,
		policy:        p.Policy,
		auditSvc:      p.AuditSvc,
		events:        p.Events,
		obsMetrics:    p.ObsMetrics,
		clock:         c,
		retryDelay:    defaultRetryDelay,
	}
}

func (s *Service) paymentPolicy() config.PaymentPolicy {
	if s.policy == nil {
		return config.DefaultPolicy().Payment
	}
	return s.policy.Get().Payment
}

func (s *Service) Authorize(ctx context.Context, req paymentdomain.AuthorizeRequest) (*paymentdomain.Authorization, error) {
	if req.BookingID == 0 {
		return nil, paymentdomain.ErrInvalidBooking
	}
	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !billable(b.Status) {
		return nil, paymentdomain.ErrBookingNotBillable
	}

	now := s.clock.Now().UTC()
	period, err := resolvePeriod(*b, req, now)
	if err != nil {
		return nil, err
	}

	charge, err := s.chargeFor(ctx, b, period)
	if err != nil {
		return nil, err
	}

	method, err := s.repo.FindPaymentMethod(ctx, s.db, b.ClientID, s.provider)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, paymentdomain.ErrPaymentMethodMissing
	}

	id := s.genID.Generate()
	auth := &paymentdomain.Authorization{
		ID:          id,
		BookingID:   b.ID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Amount:      charge.Total(),
		Currency:    currencyOf(b.Currency, s.currency),
		Provider:    s.provider,
		Reference:   fmt.Sprintf("nh-%s-%s", b.ID, id),
		Status:      paymentdomain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	claimed, err := s.repo.Claim(ctx, s.db, auth)
	if err != nil {
		return nil, err
	}
	if claimed == 0 {
		return nil, paymentdomain.ErrAlreadyAuthorized
	}

	result, gwErr := retry(ctx, s, "authorize", func(callCtx context.Context) (paymentdomain.AuthorizeResult, error) {
		return s.gateway.Authorize(callCtx, paymentdomain.GatewayAuthorizeRequest{
			Reference:         auth.Reference,
			Email:             method.Email,
			AuthorizationCode: method.AuthorizationCode,
			Amount:            auth.Amount,
			Currency:          auth.Currency,
			Metadata: map[string]string{
				"booking_id":   b.ID.String(),
				"period_start": period.Start.Format(dateLayout),
			},
		})
	})

	switch {
	case gwErr != nil:
		s.failAuthorization(ctx, b, auth, []paymentdomain.Status{paymentdomain.StatusPending}, paymentdomain.FailureReasonGatewayError)
		return nil, gwErr
	case !result.Approved:
		s.failAuthorization(ctx, b, auth, []paymentdomain.Status{paymentdomain.StatusPending}, paymentdomain.FailureReasonDeclined)
		stored, err := s.Get(ctx, auth.ID)
		if err != nil {
			return nil, err
		}
		return stored, paymentdomain.ErrAuthorizationDeclined
	}

	affected, err := s.repo.MarkAuthorized(ctx, s.db, auth.ID, result.ProviderAuthorizationID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, paymentdomain.ErrAuthorizationConflict
	}

	s.obsMetrics.RecordPaymentEvent(ctx, s.provider, string(paymentdomain.StatusAuthorized))
	s.log.Info("payment authorized",
		zap.String("authorization_id", auth.ID.String()),
		zap.String("booking_id", b.ID.String()),
		zap.String("period_start", period.Start.Format(dateLayout)),
		zap.Int64("amount", auth.Amount),
	)
	events.Emit(ctx, s.events, s.log, events.PaymentAuthorized, b.ID.String(), map[string]any{
		"authorization_id": auth.ID.String(),
		"period_start":     period.Start.Format(dateLayout),
		"amount":           auth.Amount,
		"currency":         auth.Currency,
	})
	return s.Get(ctx, auth.ID)
}

func (s *Service) AuthorizeNext(ctx context.Context, bookingID snowflake.ID) ([]paymentdomain.Authorization, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !billable(b.Status) {
		return nil, paymentdomain.ErrBookingNotBillable
	}

	var out []paymentdomain.Authorization
	for _, p := range paymentdomain.DuePeriods(*b, s.clock.Now(), s.paymentPolicy().AuthorizeDay) {
		live, err := s.repo.FindLive(ctx, s.db, b.ID, p.Start)
		if err != nil {
			return out, err
		}
		if live != nil {
			continue
		}
		auth, err := s.Authorize(ctx, paymentdomain.AuthorizeRequest{BookingID: b.ID, PeriodStart: p.Start, PeriodEnd: p.End})
		if err != nil {
			return out, err
		}
		out = append(out, *auth)
	}
	return out, nil
}

// resolvePeriod checks an explicit period against the booking's billing
// calendar. A zero period resolves to the one in progress.
func resolvePeriod(b bookingdomain.Booking, req paymentdomain.AuthorizeRequest, now time.Time) (paymentdomain.Period, error) {
	if req.PeriodStart.IsZero() {
		p, ok := paymentdomain.PeriodAt(b, now)
		if !ok {
			return paymentdomain.Period{}, paymentdomain.ErrInvalidPeriod
		}
		return p, nil
	}

	start := bookingdomain.TruncateDay(req.PeriodStart)
	p, ok := paymentdomain.PeriodAt(b, start)
	if !ok || !p.Start.Equal(start) {
		return paymentdomain.Period{}, paymentdomain.ErrInvalidPeriod
	}
	if !req.PeriodEnd.IsZero() && !p.End.Equal(bookingdomain.TruncateDay(req.PeriodEnd)) {
		return paymentdomain.Period{}, paymentdomain.ErrInvalidPeriod
	}
	return p, nil
}

// chargeFor prices a period from the frozen financials once they exist,
// and from a fresh split before the first capture.
func (s *Service) chargeFor(ctx context.Context, b *bookingdomain.Booking, p paymentdomain.Period) (paymentdomain.Charge, error) {
	f, err := s.bookings.GetFinancials(ctx, b.ID)
	switch {
	case err == nil:
		return paymentdomain.NewCharge(f.Rate, f.CommissionAmount, f.FixedFee, p.IsFirst(*b)), nil
	case errors.Is(err, bookingdomain.ErrFinancialsNotFound):
	default:
		return paymentdomain.Charge{}, err
	}

	split, err := s.bookings.Split(b)
	if err != nil {
		return paymentdomain.Charge{}, err
	}
	return paymentdomain.NewCharge(b.TotalCost, split.CommissionAmount, split.FixedFee, p.IsFirst(*b)), nil
}

func (s *Service) failAuthorization(ctx context.Context, b *bookingdomain.Booking, auth *paymentdomain.Authorization, from []paymentdomain.Status, reason string) {
	if _, err := s.repo.MarkFailed(ctx, s.db, auth.ID, from, reason, s.clock.Now().UTC()); err != nil {
		s.log.Warn("failed to mark authorization failed", zap.String("authorization_id", auth.ID.String()), zap.Error(err))
	}
	s.obsMetrics.RecordPaymentEvent(ctx, s.provider, string(paymentdomain.StatusFailed))
	s.log.Warn("payment failed",
		zap.String("authorization_id", auth.ID.String()),
		zap.String("booking_id", b.ID.String()),
		zap.String("reason", reason),
	)
	events.Emit(ctx, s.events, s.log, events.PaymentFailed, b.ID.String(), map[string]any{
		"authorization_id": auth.ID.String(),
		"period_start":     auth.PeriodStart.Format(dateLayout),
		"reason":           reason,
	})
	s.send(ctx, notificationdomain.SendRequest{
		UserID:   b.ClientID,
		Type:     notificationdomain.TypePaymentFailed,
		Title:    "Payment could not be processed",
		Message:  "We could not process the payment for the period starting " + auth.PeriodStart.Format(dateLayout) + ".",
		Priority: notificationdomain.PriorityUrgent,
		Data: map[string]any{
			"bookingId":       b.ID.String(),
			"authorizationId": auth.ID.String(),
			"reason":          reason,
		},
	})
}

func (s *Service) Capture(ctx context.Context, authorizationID snowflake.ID) (*paymentdomain.Authorization, error) {
	auth, err := s.Get(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	if auth.Status != paymentdomain.StatusAuthorized || auth.AuthorizedAt == nil {
		return nil, paymentdomain.ErrAuthorizationConflict
	}

	policy := s.paymentPolicy()
	now := s.clock.Now().UTC()
	if now.Before(paymentdomain.CaptureDueAt(auth.PeriodStart, *auth.AuthorizedAt, policy.CaptureDay, policy.MinCaptureDelay)) {
		return nil, paymentdomain.ErrCaptureTooEarly
	}

	b, err := s.bookings.GetByID(ctx, auth.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == bookingdomain.StatusCancelled {
		s.failAuthorization(ctx, b, auth, []paymentdomain.Status{paymentdomain.StatusAuthorized}, paymentdomain.FailureReasonBookingCancelled)
		s.escalateCapture(ctx, b, auth, paymentdomain.FailureReasonBookingCancelled)
		return nil, paymentdomain.ErrBookingNotBillable
	}

	verified, err := retry(ctx, s, "verify", func(callCtx context.Context) (paymentdomain.VerifyResult, error) {
		return s.gateway.Verify(callCtx, auth.Reference)
	})
	if err != nil {
		s.captureFailed(ctx, b, auth, paymentdomain.FailureReasonGatewayError)
		return nil, err
	}
	if !verified.Paid {
		s.captureFailed(ctx, b, auth, paymentdomain.FailureReasonVerifyFailed)
		return nil, paymentdomain.ErrCaptureUnverified
	}

	var (
		advice *advicedomain.PaymentAdvice
		inv    *invoicedomain.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkCaptured(ctx, tx, auth.ID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return paymentdomain.ErrAuthorizationConflict
		}

		booking, err := s.bookings.GetTx(ctx, tx, auth.BookingID)
		if err != nil {
			return err
		}
		financials, err := s.bookings.FinalizeFinancialsTx(ctx, tx, booking)
		if err != nil {
			return err
		}
		if booking.Status == bookingdomain.StatusPending || booking.Status == bookingdomain.StatusReassigned {
			booking, err = s.bookings.Transition(ctx, tx, booking.ID,
				[]bookingdomain.Status{bookingdomain.StatusPending, bookingdomain.StatusReassigned},
				bookingdomain.StatusConfirmed,
			)
			if err != nil {
				return err
			}
		}

		period := paymentdomain.Period{Start: auth.PeriodStart, End: auth.PeriodEnd}
		charge := paymentdomain.NewCharge(financials.Rate, financials.CommissionAmount, financials.FixedFee, period.IsFirst(*booking))
		if charge.Total() != auth.Amount {
			s.log.Warn("captured amount differs from stored financials",
				zap.String("authorization_id", auth.ID.String()),
				zap.Int64("authorized_amount", auth.Amount),
				zap.Int64("financials_amount", charge.Total()),
			)
		}

		advice, err = s.advices.IssueTx(ctx, tx, advicedomain.IssueRequest{
			BookingID:          booking.ID,
			AuthorizationID:    auth.ID,
			NannyID:            booking.NannyID,
			PeriodStart:        auth.PeriodStart,
			PeriodEnd:          auth.PeriodEnd,
			GrossAmount:        charge.Rate,
			CommissionDeducted: charge.Commission,
			Currency:           auth.Currency,
		})
		if err != nil {
			return err
		}

		inv, err = s.invoices.GenerateTx(ctx, tx, invoicedomain.GenerateRequest{
			BookingID:       booking.ID,
			AuthorizationID: auth.ID,
			ClientID:        booking.ClientID,
			PeriodStart:     auth.PeriodStart,
			PeriodEnd:       auth.PeriodEnd,
			Currency:        auth.Currency,
			Items: []invoicedomain.ItemInput{
				{Description: "Nanny care fee", Amount: charge.NannyNet()},
				{Description: "Platform service commission", Amount: charge.Commission},
				{Description: "Placement fee", Amount: charge.PlacementFee},
			},
		})
		if err != nil {
			return err
		}

		_, err = s.ledgerSvc.PostTx(ctx, tx, ledgerdomain.PostRequest{
			SourceType: ledgerdomain.SourceTypePaymentCapture,
			SourceID:   auth.ID,
			Currency:   auth.Currency,
			OccurredAt: now,
			Postings: []ledgerdomain.Posting{
				{Account: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: charge.Total()},
				{Account: ledgerdomain.AccountCodeNannyPayable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: charge.NannyNet()},
				{Account: ledgerdomain.AccountCodeCommissionRevenue, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: charge.Commission},
				{Account: ledgerdomain.AccountCodePlacementFeeRevenue, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: charge.PlacementFee},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, s.provider, string(paymentdomain.StatusCaptured))
	s.log.Info("payment captured",
		zap.String("authorization_id", auth.ID.String()),
		zap.String("booking_id", auth.BookingID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
	)
	s.afterCapture(ctx, b, auth, advice, inv)
	return s.Get(ctx, auth.ID)
}

// afterCapture runs the side effects of a committed capture. Failures are
// logged; advice emails are retried by the delivery sweep.
func (s *Service) afterCapture(ctx context.Context, b *bookingdomain.Booking, auth *paymentdomain.Authorization, advice *advicedomain.PaymentAdvice, inv *invoicedomain.Invoice) {
	if err := s.advices.Deliver(ctx, advice.ID); err != nil {
		s.log.Warn("failed to deliver payment advice", zap.String("advice_id", advice.ID.String()), zap.Error(err))
	}
	if err := s.invoices.Deliver(ctx, inv.ID); err != nil {
		s.log.Warn("failed to deliver invoice", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}

	s.send(ctx, notificationdomain.SendRequest{
		UserID:  advice.NannyID,
		Type:    notificationdomain.TypePaymentAdvice,
		Title:   "Payment advice issued",
		Message: "Your payment advice for " + auth.PeriodStart.Format(dateLayout) + " to " + auth.PeriodEnd.Format(dateLayout) + " is ready.",
		Data: map[string]any{
			"bookingId": b.ID.String(),
			"adviceId":  advice.ID.String(),
			"netAmount": advice.NetAmount,
		},
	})
	s.send(ctx, notificationdomain.SendRequest{
		UserID:  inv.ClientID,
		Type:    notificationdomain.TypeInvoice,
		Title:   "Invoice " + inv.InvoiceNumber,
		Message: "Your invoice for " + auth.PeriodStart.Format(dateLayout) + " to " + auth.PeriodEnd.Format(dateLayout) + " is ready.",
		Data: map[string]any{
			"bookingId":     b.ID.String(),
			"invoiceId":     inv.ID.String(),
			"invoiceNumber": inv.InvoiceNumber,
			"totalAmount":   inv.TotalAmount,
		},
	})

	events.Emit(ctx, s.events, s.log, events.PaymentCaptured, b.ID.String(), map[string]any{
		"authorization_id": auth.ID.String(),
		"period_start":     auth.PeriodStart.Format(dateLayout),
		"amount":           auth.Amount,
		"currency":         auth.Currency,
		"invoice_number":   inv.InvoiceNumber,
	})
	s.bookings.Broadcast(ctx, b.ID)
}

func (s *Service) captureFailed(ctx context.Context, b *bookingdomain.Booking, auth *paymentdomain.Authorization, reason string) {
	s.failAuthorization(ctx, b, auth, []paymentdomain.Status{paymentdomain.StatusAuthorized}, reason)
	s.escalateCapture(ctx, b, auth, reason)

	if s.notifications == nil {
		return
	}
	method, err := s.repo.FindPaymentMethod(ctx, s.db, b.ClientID, s.provider)
	if err != nil || method == nil || method.Email == "" {
		return
	}
	if err := s.notifications.SendEmail(ctx, []string{method.Email}, email.TemplatePaymentCaptureFail, map[string]any{
		"booking_id":   b.ID.String(),
		"period_start": auth.PeriodStart.Format(dateLayout),
		"reason":       reason,
	}); err != nil {
		s.log.Warn("failed to email capture failure", zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

// escalateCapture puts every failed capture in front of admins.
func (s *Service) escalateCapture(ctx context.Context, b *bookingdomain.Booking, auth *paymentdomain.Authorization, reason string) {
	if s.escalations == nil {
		return
	}
	message := "Capture failed for the period starting " + auth.PeriodStart.Format(dateLayout) + "."
	if reason == paymentdomain.FailureReasonBookingCancelled {
		message = "Booking was cancelled before the period starting " + auth.PeriodStart.Format(dateLayout) + " was captured."
	}
	if _, err := s.escalations.Raise(ctx, escalationdomain.RaiseRequest{
		BookingID: b.ID,
		Reason:    escalationdomain.ReasonCaptureFailed,
		Message:   message,
		Context: map[string]any{
			"authorization_id": auth.ID.String(),
			"period_start":     auth.PeriodStart.Format(dateLayout),
			"reason":           reason,
		},
	}); err != nil {
		s.log.Warn("failed to raise capture escalation", zap.String("authorization_id", auth.ID.String()), zap.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*paymentdomain.Authorization, error) {
	auth, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, paymentdomain.ErrAuthorizationNotFound
	}
	return auth, nil
}

func (s *Service) ListForBooking(ctx context.Context, req paymentdomain.ListRequest) (paymentdomain.ListResponse, error) {
	if req.BookingID == 0 {
		return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidBooking
	}
	filter := paymentdomain.ListFilter{BookingID: req.BookingID, Limit: req.Limit()}
	cursor, err := req.Cursor()
	if err != nil {
		return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidPageToken
	}
	filter.AfterID = cursor.AfterID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(a paymentdomain.Authorization) int64 {
		return a.ID.Int64()
	})
	return paymentdomain.ListResponse{PageInfo: pageInfo, Authorizations: items}, nil
}

func (s *Service) DueForAuthorization(ctx context.Context, now time.Time, limit int) ([]paymentdomain.DuePeriod, error) {
	authorizeDay := s.paymentPolicy().AuthorizeDay
	var (
		out     []paymentdomain.DuePeriod
		afterID int64
	)
	for limit <= 0 || len(out) < limit {
		items, err := s.bookings.ListBillable(ctx, now, afterID, sweepPageSize)
		if err != nil {
			return out, err
		}
		for _, b := range items {
			afterID = b.ID.Int64()
			for _, p := range paymentdomain.DuePeriods(b, now, authorizeDay) {
				live, err := s.repo.FindLive(ctx, s.db, b.ID, p.Start)
				if err != nil {
					return out, err
				}
				if live != nil {
					continue
				}
				out = append(out, paymentdomain.DuePeriod{BookingID: b.ID, Period: p})
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
		}
		if len(items) < sweepPageSize {
			break
		}
	}
	return out, nil
}

func (s *Service) DueForCapture(ctx context.Context, now time.Time, limit int) ([]paymentdomain.Authorization, error) {
	policy := s.paymentPolicy()
	var (
		out     []paymentdomain.Authorization
		afterID int64
	)
	for limit <= 0 || len(out) < limit {
		items, err := s.repo.ListAuthorized(ctx, s.db, afterID, sweepPageSize)
		if err != nil {
			return out, err
		}
		for _, auth := range items {
			afterID = auth.ID.Int64()
			if auth.AuthorizedAt == nil {
				continue
			}
			if now.Before(paymentdomain.CaptureDueAt(auth.PeriodStart, *auth.AuthorizedAt, policy.CaptureDay, policy.MinCaptureDelay)) {
				continue
			}
			out = append(out, auth)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if len(items) < sweepPageSize {
			break
		}
	}
	return out, nil
}

func (s *Service) AuthorizeDue(ctx context.Context, now time.Time, limit int) (paymentdomain.SweepResult, error) {
	var result paymentdomain.SweepResult
	due, err := s.DueForAuthorization(ctx, now, limit)
	if err != nil {
		return result, err
	}
	for _, item := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++
		_, err := s.Authorize(ctx, paymentdomain.AuthorizeRequest{
			BookingID:   item.BookingID,
			PeriodStart: item.Period.Start,
			PeriodEnd:   item.Period.End,
		})
		switch {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, paymentdomain.ErrAlreadyAuthorized):
		default:
			result.Failed++
			s.log.Warn("scheduled authorization failed",
				zap.String("booking_id", item.BookingID.String()),
				zap.String("period_start", item.Period.Start.Format(dateLayout)),
				zap.Error(err),
			)
		}
	}
	return result, nil
}

func (s *Service) CaptureDue(ctx context.Context, now time.Time, limit int) (paymentdomain.SweepResult, error) {
	var result paymentdomain.SweepResult
	due, err := s.DueForCapture(ctx, now, limit)
	if err != nil {
		return result, err
	}
	for _, auth := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++
		if _, err := s.Capture(ctx, auth.ID); err != nil {
			if apperror.IsConflict(err) && !errors.Is(err, paymentdomain.ErrCaptureUnverified) {
				continue
			}
			result.Failed++
			s.log.Warn("scheduled capture failed",
				zap.String("authorization_id", auth.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *Service) SavePaymentMethod(ctx context.Context, req paymentdomain.SavePaymentMethodRequest) (*paymentdomain.PaymentMethod, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, paymentdomain.ErrInvalidClient
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = s.provider
	}
	if provider != s.provider {
		return nil, paymentdomain.ErrInvalidProvider
	}
	code := strings.TrimSpace(req.AuthorizationCode)
	if code == "" {
		return nil, paymentdomain.ErrInvalidAuthorizationCode
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, paymentdomain.ErrInvalidEmail
	}

	now := s.clock.Now().UTC()
	pm := &paymentdomain.PaymentMethod{
		ClientID:          clientID,
		Provider:          provider,
		AuthorizationCode: code,
		Email:             addr.Address,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.UpsertPaymentMethod(ctx, s.db, pm); err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		metadata := masking.MaskFields(map[string]any{
			"provider":           provider,
			"authorization_code": code,
			"email":              pm.Email,
		}, "authorization_code")
		if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeClient), &clientID, "payment_method.saved", auditdomain.TargetPaymentMethod, &clientID, metadata); err != nil {
			s.log.Warn("failed to write audit log", zap.String("action", "payment_method.saved"), zap.Error(err))
		}
	}

	stored, err := s.repo.FindPaymentMethod(ctx, s.db, clientID, provider)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return pm, nil
	}
	return stored, nil
}

func (s *Service) send(ctx context.Context, req notificationdomain.SendRequest) {
	if s.notifications == nil || req.UserID == "" {
		return
	}
	if _, err := s.notifications.Send(ctx, req); err != nil {
		s.log.Warn("failed to send notification",
			zap.String("user_id", req.UserID),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
	}
}

// retry calls the gateway with bounded exponential backoff. Only
// external errors are retried.
func retry[T any](ctx context.Context, s *Service, op string, call func(context.Context) (T, error)) (T, error) {
	policy := s.paymentPolicy()
	attempts := policy.GatewayMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryDelay
	b.MaxInterval = 8 * s.retryDelay

	return backoff.Retry(ctx, func() (T, error) {
		callCtx := ctx
		if policy.GatewayTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, policy.GatewayTimeout)
			defer cancel()
		}
		res, err := call(callCtx)
		if err != nil && !apperror.IsExternal(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("payment gateway call failed, retrying",
				zap.String("operation", op),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
}

func billable(status bookingdomain.Status) bool {
	for _, st := range bookingdomain.BillableStatuses {
		if st == status {
			return true
		}
	}
	return false
}

func currencyOf(values ...string) string {
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
