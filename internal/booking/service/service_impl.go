package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	"github.com/smallbiznis/nannyhub/internal/events"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/realtime"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCurrency = "ZAR"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Profiles      profiledomain.Service
	Notifications notificationdomain.Service
	Policy        *config.PolicyHolder `optional:"true"`
	AuditSvc      auditdomain.Service  `optional:"true"`
	Realtime      realtime.Publisher   `optional:"true"`
	Events        events.Publisher     `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics  `optional:"true"`
	Clock         clock.Clock          `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	profiles      profiledomain.Service
	notifications notificationdomain.Service
	engine        *revenuesplit.Engine
	auditSvc      auditdomain.Service
	realtime      realtime.Publisher
	events        events.Publisher
	obsMetrics    *obsmetrics.Metrics
	clock         clock.Clock
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	var table revenuesplit.TableFunc
	if p.Policy != nil {
		table = p.Policy.FeeTable
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("booking.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		profiles:      p.Profiles,
		notifications: p.Notifications,
		engine:        revenuesplit.NewEngine(table),
		auditSvc:      p.AuditSvc,
		realtime:      p.Realtime,
		events:        p.Events,
		obsMetrics:    p.ObsMetrics,
		clock:         c,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.CreateBookingResponse, error) {
	b, err := s.newBooking(req)
	if err != nil {
		return nil, err
	}

	quote, err := s.Split(b)
	if err != nil {
		return nil, err
	}

	candidate, err := s.pickNanny(ctx, b, strings.TrimSpace(req.RequestedNannyID))
	if err != nil {
		return nil, err
	}
	b.NannyID = candidate.UserID

	if err := s.repo.Insert(ctx, s.db, b); err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("client_id", b.ClientID),
		zap.String("nanny_id", b.NannyID),
		zap.String("category", string(b.Category)),
	)

	s.notifyAssignment(ctx, b, candidate)
	s.publish(ctx, b, "INSERT")
	events.Emit(ctx, s.events, s.log, events.BookingCreated, b.ID.String(), map[string]any{
		"clientId": b.ClientID,
		"payeeId":  b.NannyID,
		"category": string(b.Category),
	})
	return &domain.CreateBookingResponse{Booking: b, Quote: quote}, nil
}

func (s *Service) newBooking(req domain.CreateBookingRequest) (*domain.Booking, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, domain.ErrInvalidClient
	}
	category, err := revenuesplit.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	homeSize, err := revenuesplit.ParseHomeSize(req.HomeSize)
	if err != nil {
		return nil, err
	}
	arrangement := profiledomain.LivingArrangement(strings.ToLower(strings.TrimSpace(req.LivingArrangement)))
	if !arrangement.Valid() {
		return nil, domain.ErrInvalidArrangement
	}
	if req.BaseRate <= 0 {
		return nil, domain.ErrInvalidBaseRate
	}
	if req.AdditionalServicesCost < 0 {
		return nil, domain.ErrInvalidAdditionalCost
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if req.StartDate.IsZero() {
		return nil, domain.ErrInvalidStartDate
	}
	start := domain.TruncateDay(req.StartDate)
	if start.Before(domain.TruncateDay(now)) {
		return nil, domain.ErrInvalidStartDate
	}

	var end *time.Time
	if req.EndDate != nil {
		e := domain.TruncateDay(*req.EndDate)
		if e.Before(start) {
			return nil, domain.ErrInvalidEndDate
		}
		end = &e
	}
	if category == revenuesplit.CategoryShortTerm && end == nil {
		return nil, domain.ErrInvalidEndDate
	}

	var notes *string
	if req.Notes != nil {
		if trimmed := strings.TrimSpace(*req.Notes); trimmed != "" {
			notes = &trimmed
		}
	}

	return &domain.Booking{
		ID:                     s.genID.Generate(),
		ClientID:               clientID,
		Category:               category,
		Status:                 domain.StatusPending,
		StartDate:              start,
		EndDate:                end,
		BaseRate:               req.BaseRate,
		AdditionalServicesCost: req.AdditionalServicesCost,
		TotalCost:              req.BaseRate + req.AdditionalServicesCost,
		Currency:               currency,
		HomeSize:               homeSize,
		LivingArrangement:      string(arrangement),
		RequiredSkills:         datatypes.NewJSONSlice(normalizeTags(req.RequiredSkills)),
		Notes:                  notes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// pickNanny verifies the requested nanny against the booking's
// requirements, or takes the best-rated eligible one.
func (s *Service) pickNanny(ctx context.Context, b *domain.Booking, requested string) (*profiledomain.Candidate, error) {
	filter := profiledomain.CandidateFilter{
		RequiredSkills:    b.RequiredSkills,
		LivingArrangement: b.LivingArrangement,
		StartDate:         b.StartDate,
		EndDate:           b.EndDate,
		ExcludeBookingID:  b.ID,
		Limit:             1,
	}
	if requested != "" {
		filter.UserIDs = []string{requested}
	}

	candidates, err := s.profiles.FindCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		if requested != "" {
			return nil, domain.ErrRequestedNannyUnavailable
		}
		return nil, domain.ErrNoCandidate
	}
	return &candidates[0], nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID, actor domain.Actor) (*domain.Booking, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(actor) {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Booking, error) {
	return s.GetTx(ctx, s.db, id)
}

func (s *Service) GetTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	if tx == nil {
		tx = s.db
	}
	b, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{Limit: req.Limit()}

	switch req.Actor.Role {
	case profiledomain.RoleClient:
		filter.ClientID = req.Actor.ID
	case profiledomain.RoleNanny:
		filter.NannyID = req.Actor.ID
	case profiledomain.RoleAdmin:
		filter.ClientID = strings.TrimSpace(req.ClientID)
		filter.NannyID = strings.TrimSpace(req.NannyID)
	default:
		return domain.ListResponse{}, domain.ErrForbidden
	}

	statuses, err := parseStatuses(req.Status)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter.Statuses = statuses

	cursor, err := req.Cursor()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	filter.AfterID = cursor.AfterID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(b domain.Booking) int64 {
		return b.ID.Int64()
	})
	return domain.ListResponse{PageInfo: pageInfo, Bookings: items}, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error) {
	b, err := s.Get(ctx, req.ID, req.Actor)
	if err != nil {
		return nil, err
	}
	if req.Actor.Role != profiledomain.RoleAdmin && req.Actor.Role != profiledomain.RoleClient {
		return nil, domain.ErrForbidden
	}

	cancelled, err := s.Transition(ctx, nil, b.ID, []domain.Status{
		domain.StatusPending,
		domain.StatusConfirmed,
		domain.StatusReassigned,
		domain.StatusAdminInterventionRequired,
	}, domain.StatusCancelled)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if req.Actor.Role == profiledomain.RoleAdmin {
		s.audit(ctx, auditdomain.ActorTypeAdmin, req.Actor.ID, "booking.cancel", cancelled.ID, map[string]any{
			"from_status": string(b.Status),
			"reason":      reason,
		})
	}

	s.send(ctx, notificationdomain.SendRequest{
		UserID:  cancelled.NannyID,
		Type:    notificationdomain.TypeBookingCancelled,
		Title:   "Booking cancelled",
		Message: "Booking " + cancelled.ID.String() + " has been cancelled.",
		Data: map[string]any{
			"bookingId": cancelled.ID.String(),
			"reason":    reason,
		},
	})
	s.publish(ctx, cancelled, "UPDATE")
	events.Emit(ctx, s.events, s.log, events.BookingCancelled, cancelled.ID.String(), map[string]any{
		"cancelledBy": req.Actor.ID,
		"role":        string(req.Actor.Role),
	})
	return cancelled, nil
}

func (s *Service) Transition(ctx context.Context, tx *gorm.DB, id snowflake.ID, from []domain.Status, to domain.Status) (*domain.Booking, error) {
	return s.move(ctx, tx, id, from, to, func(db *gorm.DB, current domain.Status, at time.Time) (int64, error) {
		return s.repo.UpdateStatus(ctx, db, id, current, to, at)
	})
}

func (s *Service) AssignNanny(ctx context.Context, tx *gorm.DB, id snowflake.ID, nannyID string, from []domain.Status, to domain.Status) (*domain.Booking, error) {
	nannyID = strings.TrimSpace(nannyID)
	if nannyID == "" {
		return nil, domain.ErrRequestedNannyUnavailable
	}
	return s.move(ctx, tx, id, from, to, func(db *gorm.DB, current domain.Status, at time.Time) (int64, error) {
		return s.repo.UpdateNanny(ctx, db, id, nannyID, current, to, at)
	})
}

// move reads the current status, checks it against from and the state
// machine, then applies update guarded on that status. A concurrent
// writer that got there first surfaces as ErrStatusConflict.
func (s *Service) move(
	ctx context.Context,
	tx *gorm.DB,
	id snowflake.ID,
	from []domain.Status,
	to domain.Status,
	update func(db *gorm.DB, current domain.Status, at time.Time) (int64, error),
) (*domain.Booking, error) {
	if tx == nil {
		tx = s.db
	}
	b, err := s.GetTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	current := b.Status
	if !containsStatus(from, current) {
		return nil, domain.ErrStatusConflict
	}
	if current != to && !domain.CanTransition(current, to) {
		return nil, domain.ErrInvalidTransition
	}

	at := s.clock.Now().UTC()
	affected, err := update(tx, current, at)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrStatusConflict
	}

	s.obsMetrics.RecordBookingTransition(ctx, string(current), string(to))
	s.log.Info("booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("from_status", string(current)),
		zap.String("to_status", string(to)),
	)
	return s.GetTx(ctx, tx, id)
}

func (s *Service) ActivateStarted(ctx context.Context, now time.Time, limit int) (int, error) {
	items, err := s.repo.ListStartingBy(ctx, s.db, domain.TruncateDay(now), limit)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, items, domain.StatusConfirmed, domain.StatusActive, events.BookingActivated), nil
}

func (s *Service) CompleteEnded(ctx context.Context, now time.Time, limit int) (int, error) {
	items, err := s.repo.ListEndedBefore(ctx, s.db, domain.TruncateDay(now), limit)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, items, domain.StatusActive, domain.StatusCompleted, events.BookingCompleted), nil
}

func (s *Service) sweep(ctx context.Context, items []domain.Booking, from, to domain.Status, eventType events.Type) int {
	moved := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return moved
		}
		b, err := s.Transition(ctx, nil, item.ID, []domain.Status{from}, to)
		if err != nil {
			if !errors.Is(err, domain.ErrStatusConflict) {
				s.log.Warn("booking sweep transition failed",
					zap.String("booking_id", item.ID.String()),
					zap.String("to_status", string(to)),
					zap.Error(err),
				)
			}
			continue
		}
		moved++
		s.publish(ctx, b, "UPDATE")
		events.Emit(ctx, s.events, s.log, eventType, b.ID.String(), nil)
	}
	return moved
}

func (s *Service) ListBillable(ctx context.Context, now time.Time, afterID int64, limit int) ([]domain.Booking, error) {
	return s.repo.ListBillable(ctx, s.db, domain.TruncateDay(now), afterID, limit)
}

func (s *Service) FinalizeFinancialsTx(ctx context.Context, tx *gorm.DB, b *domain.Booking) (*domain.Financials, error) {
	if tx == nil {
		tx = s.db
	}
	existing, err := s.repo.FindFinancials(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	result, err := s.Split(b)
	if err != nil {
		return nil, err
	}
	input := b.SplitInput()
	f := &domain.Financials{
		BookingID:         b.ID,
		Category:          b.Category,
		HomeSize:          b.HomeSize,
		Rate:              input.Rate,
		BookingDays:       input.BookingDays,
		FixedFee:          result.FixedFee,
		CommissionPercent: result.CommissionPercent,
		CommissionAmount:  result.CommissionAmount,
		PayerTotal:        result.PayerTotal,
		PayeeNet:          result.PayeeNet,
		CalculatedAt:      s.clock.Now().UTC(),
	}
	if _, err := s.repo.InsertFinancials(ctx, tx, f); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindFinancials(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrFinancialsNotFound
	}
	return stored, nil
}

func (s *Service) GetFinancials(ctx context.Context, bookingID snowflake.ID) (*domain.Financials, error) {
	f, err := s.repo.FindFinancials(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrFinancialsNotFound
	}
	return f, nil
}

func (s *Service) CorrectFinancials(ctx context.Context, req domain.CorrectFinancialsRequest) (*domain.Financials, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.ErrCorrectionReasonRequired
	}
	correctedBy := strings.TrimSpace(req.CorrectedBy)
	if correctedBy == "" {
		correctedBy = "admin"
	}

	before, err := s.GetFinancials(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	after := *before
	after.FixedFee = req.FixedFee
	after.CommissionPercent = req.CommissionPercent
	after.CommissionAmount = req.CommissionAmount
	after.PayerTotal = req.PayerTotal
	after.PayeeNet = req.PayeeNet
	after.CorrectedAt = &now
	after.CorrectedBy = &correctedBy
	after.CorrectionReason = &reason

	if after.FixedFee < 0 || after.CommissionAmount < 0 || after.CommissionPercent < 0 || after.CommissionPercent > 100 {
		return nil, domain.ErrInvalidFinancials
	}
	if !after.Balanced() {
		return nil, domain.ErrInvalidFinancials
	}

	if _, err := s.repo.UpdateFinancials(ctx, s.db, &after); err != nil {
		return nil, err
	}

	s.audit(ctx, auditdomain.ActorTypeAdmin, correctedBy, "booking.financials.correct", req.BookingID, map[string]any{
		"reason": reason,
		"before": financialsSnapshot(before),
		"after":  financialsSnapshot(&after),
	})
	events.Emit(ctx, s.events, s.log, events.FinancialsCorrected, req.BookingID.String(), map[string]any{
		"correctedBy": correctedBy,
	})
	return s.GetFinancials(ctx, req.BookingID)
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	category, err := revenuesplit.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	homeSize, err := revenuesplit.ParseHomeSize(req.HomeSize)
	if err != nil {
		return nil, err
	}
	if req.BaseRate < 0 {
		return nil, domain.ErrInvalidBaseRate
	}
	if req.AdditionalServicesCost < 0 {
		return nil, domain.ErrInvalidAdditionalCost
	}

	days := req.Days
	if req.StartDate != nil && req.EndDate != nil {
		if req.EndDate.Before(*req.StartDate) {
			return nil, domain.ErrInvalidEndDate
		}
		days = domain.DaysBetween(*req.StartDate, req.EndDate)
	}

	input := revenuesplit.Input{
		Category:    category,
		Rate:        req.BaseRate + req.AdditionalServicesCost,
		HomeSize:    homeSize,
		BookingDays: days,
	}
	result, err := s.engine.Calculate(input)
	if err != nil {
		return nil, err
	}
	s.obsMetrics.RecordSplitCalculation(ctx, string(category), string(homeSize))
	return &domain.QuoteResponse{
		Result:      result,
		Category:    category,
		HomeSize:    homeSize,
		Rate:        input.Rate,
		BookingDays: days,
	}, nil
}

func (s *Service) Split(b *domain.Booking) (revenuesplit.Result, error) {
	result, err := s.engine.Calculate(b.SplitInput())
	if err != nil {
		return revenuesplit.Result{}, err
	}
	s.obsMetrics.RecordSplitCalculation(context.Background(), string(b.Category), string(b.HomeSize))
	return result, nil
}

func (s *Service) Broadcast(ctx context.Context, id snowflake.ID) {
	if s.realtime == nil {
		return
	}
	b, err := s.GetByID(ctx, id)
	if err != nil {
		s.log.Warn("failed to load booking for broadcast", zap.String("booking_id", id.String()), zap.Error(err))
		return
	}
	s.publish(ctx, b, "UPDATE")
}

func (s *Service) publish(ctx context.Context, b *domain.Booking, eventType string) {
	if s.realtime == nil || b == nil {
		return
	}
	s.realtime.Publish(ctx, realtime.Topic("bookings", "client_id", b.ClientID), eventType, b)
	s.realtime.Publish(ctx, realtime.Topic("bookings", "nanny_id", b.NannyID), eventType, b)
}

func (s *Service) notifyAssignment(ctx context.Context, b *domain.Booking, nanny *profiledomain.Candidate) {
	s.send(ctx, notificationdomain.SendRequest{
		UserID:  b.NannyID,
		Type:    notificationdomain.TypeBookingAssignment,
		Title:   "New booking assignment",
		Message: "You have been assigned to a booking starting " + b.StartDate.Format("2006-01-02") + ".",
		Data: map[string]any{
			"bookingId": b.ID.String(),
			"clientId":  b.ClientID,
			"category":  string(b.Category),
		},
	})

	if s.notifications == nil || nanny == nil || nanny.Email == "" {
		return
	}
	if err := s.notifications.SendEmail(ctx, []string{nanny.Email}, email.TemplateBookingAssignment, map[string]any{
		"nanny_name": nanny.FullName,
		"booking_id": b.ID.String(),
		"start_date": b.StartDate.Format("2006-01-02"),
	}); err != nil {
		s.log.Warn("failed to email booking assignment", zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
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

func (s *Service) audit(ctx context.Context, actorType auditdomain.ActorType, actorID string, action string, bookingID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := bookingID.String()
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	if err := s.auditSvc.AuditLog(ctx, string(actorType), actor, action, auditdomain.TargetBooking, &targetID, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func financialsSnapshot(f *domain.Financials) map[string]any {
	return map[string]any{
		"fixed_fee":          f.FixedFee,
		"commission_percent": f.CommissionPercent,
		"commission_amount":  f.CommissionAmount,
		"payer_total":        f.PayerTotal,
		"payee_net":          f.PayeeNet,
	}
}

func parseStatuses(raw string) ([]domain.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []domain.Status
	for _, part := range strings.Split(raw, ",") {
		status := domain.Status(strings.ToLower(strings.TrimSpace(part)))
		if status == "" {
			continue
		}
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		out = append(out, status)
	}
	return out, nil
}

func containsStatus(list []domain.Status, status domain.Status) bool {
	for _, item := range list {
		if item == status {
			return true
		}
	}
	return false
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return defaultCurrency, nil
	}
	if len(currency) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", domain.ErrInvalidCurrency
		}
	}
	return currency, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
