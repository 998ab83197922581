package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	escalationdomain "github.com/smallbiznis/nannyhub/internal/escalation/domain"
	"github.com/smallbiznis/nannyhub/internal/events"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Bookings the assigned nanny may walk away from.
var rejectableStatuses = []bookingdomain.Status{
	bookingdomain.StatusPending,
	bookingdomain.StatusConfirmed,
	bookingdomain.StatusReassigned,
	bookingdomain.StatusActive,
}

// Bookings an admin can still staff.
var staffableStatuses = []bookingdomain.Status{
	bookingdomain.StatusPending,
	bookingdomain.StatusConfirmed,
	bookingdomain.StatusReassigned,
	bookingdomain.StatusAdminInterventionRequired,
	bookingdomain.StatusActive,
}

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Bookings      bookingdomain.Service
	Profiles      profiledomain.Service
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
	repo          domain.Repository
	bookings      bookingdomain.Service
	profiles      profiledomain.Service
	escalations   escalationdomain.Service
	notifications notificationdomain.Service
	policy        *config.PolicyHolder
	auditSvc      auditdomain.Service
	events        events.Publisher
	obsMetrics    *obsmetrics.Metrics
	clock         clock.Clock
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("reassignment.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		bookings:      p.Bookings,
		profiles:      p.Profiles,
		escalations:   p.Escalations,
		notifications: p.Notifications,
		policy:        p.Policy,
		auditSvc:      p.AuditSvc,
		events:        p.Events,
		obsMetrics:    p.ObsMetrics,
		clock:         c,
	}
}

func (s *Service) reassignmentPolicy() config.ReassignmentPolicy {
	if s.policy == nil {
		return config.DefaultPolicy().Reassignment
	}
	return s.policy.Get().Reassignment
}

func (s *Service) HandleRejection(ctx context.Context, req domain.RejectRequest) (*domain.BookingReassignment, error) {
	if req.BookingID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	nannyID := strings.TrimSpace(req.NannyID)
	if nannyID == "" {
		return nil, domain.ErrInvalidNanny
	}
	reason := domain.Reason(strings.ToLower(strings.TrimSpace(req.Reason)))
	if reason == "" {
		reason = domain.ReasonNannyRejected
	}
	if reason != domain.ReasonNannyRejected && reason != domain.ReasonNannyUnavailable {
		return nil, domain.ErrInvalidReason
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.NannyID != nannyID {
		return nil, domain.ErrNotAssignedNanny
	}
	if !containsStatus(rejectableStatuses, b.Status) {
		return nil, domain.ErrBookingNotReassigning
	}

	history, err := s.repo.ListByBooking(ctx, s.db, b.ID)
	if err != nil {
		return nil, err
	}
	exclude := []string{nannyID}
	for _, item := range history {
		exclude = appendUnique(exclude, item.OriginalNannyID)
	}

	policy := s.reassignmentPolicy()
	candidates, err := s.profiles.FindCandidates(ctx, profiledomain.CandidateFilter{
		RequiredSkills:    b.RequiredSkills,
		LivingArrangement: b.LivingArrangement,
		StartDate:         b.StartDate,
		EndDate:           b.EndDate,
		Exclude:           exclude,
		ExcludeBookingID:  b.ID,
		Limit:             policy.AlternativesLimit + 1,
	})
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, s.escalateNoCandidate(ctx, b, nannyID, reason, req.Note)
	}

	now := s.clock.Now().UTC()
	expires := now.Add(policy.ResponseWindow)
	alternatives := make([]string, 0, len(candidates)-1)
	for _, c := range candidates[1:] {
		alternatives = append(alternatives, c.UserID)
	}
	item := &domain.BookingReassignment{
		ID:                  s.genID.Generate(),
		BookingID:           b.ID,
		OriginalNannyID:     nannyID,
		NewNannyID:          candidates[0].UserID,
		ClientID:            b.ClientID,
		Reason:              reason,
		AlternativeNannyIDs: datatypes.NewJSONSlice(alternatives),
		ClientResponse:      domain.ResponsePending,
		ExpiresAt:           &expires,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var updated *bookingdomain.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CloseOpen(ctx, tx, b.ID, domain.ResolvedBySystem, now); err != nil {
			return err
		}
		var err error
		updated, err = s.bookings.AssignNanny(ctx, tx, b.ID, item.NewNannyID, rejectableStatuses, bookingdomain.StatusReassigned)
		if err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReassignment(ctx, string(reason), "reassigned")
	s.log.Info("booking reassigned",
		zap.String("booking_id", b.ID.String()),
		zap.String("reassignment_id", item.ID.String()),
		zap.String("original_nanny_id", nannyID),
		zap.String("new_nanny_id", item.NewNannyID),
		zap.Int("alternatives", len(alternatives)),
	)

	s.notifyReassigned(ctx, updated, item, &candidates[0])
	s.bookings.Broadcast(ctx, b.ID)
	events.Emit(ctx, s.events, s.log, events.BookingReassigned, b.ID.String(), reassignedPayload(item))
	return item, nil
}

// escalateNoCandidate parks the booking with admins when nobody can
// replace the nanny.
func (s *Service) escalateNoCandidate(ctx context.Context, b *bookingdomain.Booking, nannyID string, reason domain.Reason, note string) error {
	message := "No replacement nanny is available for booking " + b.ID.String() + "."
	var escalation *escalationdomain.Escalation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CloseOpen(ctx, tx, b.ID, domain.ResolvedBySystem, s.clock.Now().UTC()); err != nil {
			return err
		}
		if _, err := s.bookings.Transition(ctx, tx, b.ID, rejectableStatuses, bookingdomain.StatusAdminInterventionRequired); err != nil {
			return err
		}
		var err error
		escalation, err = s.escalations.RaiseTx(ctx, tx, escalationdomain.RaiseRequest{
			BookingID: b.ID,
			Reason:    escalationdomain.ReasonNoCandidate,
			Message:   message,
			Context: map[string]any{
				"nannyId":    nannyID,
				"clientId":   b.ClientID,
				"reason":     string(reason),
				"note":       strings.TrimSpace(note),
				"candidates": 0,
			},
		})
		return err
	})
	if err != nil {
		return err
	}

	s.obsMetrics.RecordReassignment(ctx, string(reason), "escalated")
	s.escalations.Notify(ctx, escalation, message)
	s.bookings.Broadcast(ctx, b.ID)
	events.Emit(ctx, s.events, s.log, events.BookingEscalated, b.ID.String(), map[string]any{
		"reason":  string(escalationdomain.ReasonNoCandidate),
		"nannyId": nannyID,
	})
	return domain.ErrNoCandidate
}

func (s *Service) Respond(ctx context.Context, req domain.RespondRequest) (*domain.BookingReassignment, error) {
	item, err := s.Get(ctx, req.ReassignmentID)
	if err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" || clientID != item.ClientID {
		return nil, domain.ErrForbidden
	}
	if !item.Open() {
		return nil, domain.ErrReassignmentClosed
	}

	if req.Accept {
		return s.accept(ctx, item, clientID, strings.TrimSpace(req.NannyID))
	}
	return s.reject(ctx, item, clientID)
}

func (s *Service) accept(ctx context.Context, item *domain.BookingReassignment, clientID, nannyID string) (*domain.BookingReassignment, error) {
	if nannyID == "" {
		nannyID = item.NewNannyID
	}
	if !item.Offers(nannyID) {
		return nil, domain.ErrInvalidAlternative
	}

	var updated *bookingdomain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Resolve(ctx, tx, item.ID, domain.ResponseAccepted, clientID, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrReassignmentClosed
		}
		updated, err = s.bookings.AssignNanny(ctx, tx, item.BookingID, nannyID,
			[]bookingdomain.Status{bookingdomain.StatusReassigned}, bookingdomain.StatusActive)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReassignment(ctx, string(item.Reason), "accepted")
	s.log.Info("reassignment accepted",
		zap.String("reassignment_id", item.ID.String()),
		zap.String("booking_id", item.BookingID.String()),
		zap.String("nanny_id", nannyID),
	)

	if nannyID != item.NewNannyID {
		s.send(ctx, notificationdomain.SendRequest{
			UserID:  item.NewNannyID,
			Type:    notificationdomain.TypeBookingCancelled,
			Title:   "Booking assignment withdrawn",
			Message: "The client chose another nanny for booking " + item.BookingID.String() + ".",
			Data:    map[string]any{"bookingId": item.BookingID.String()},
		})
	}
	s.notifyAssignment(ctx, updated, nannyID)
	s.bookings.Broadcast(ctx, item.BookingID)
	events.Emit(ctx, s.events, s.log, events.BookingActivated, item.BookingID.String(), map[string]any{
		"reassignmentId": item.ID.String(),
		"payeeId":        nannyID,
	})
	return s.Get(ctx, item.ID)
}

func (s *Service) reject(ctx context.Context, item *domain.BookingReassignment, clientID string) (*domain.BookingReassignment, error) {
	message := "The client rejected the replacement nanny for booking " + item.BookingID.String() + "."
	var escalation *escalationdomain.Escalation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Resolve(ctx, tx, item.ID, domain.ResponseRejected, clientID, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrReassignmentClosed
		}
		if _, err := s.bookings.Transition(ctx, tx, item.BookingID,
			[]bookingdomain.Status{bookingdomain.StatusReassigned}, bookingdomain.StatusAdminInterventionRequired); err != nil {
			return err
		}
		escalation, err = s.escalations.RaiseTx(ctx, tx, escalationdomain.RaiseRequest{
			BookingID: item.BookingID,
			Reason:    escalationdomain.ReasonClientRequestedHelp,
			Message:   message,
			Context: map[string]any{
				"reassignmentId":      item.ID.String(),
				"clientId":            clientID,
				"rejectedPayeeId":     item.NewNannyID,
				"alternativePayeeIds": []string(item.AlternativeNannyIDs),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReassignment(ctx, string(item.Reason), "rejected")
	s.log.Info("reassignment rejected",
		zap.String("reassignment_id", item.ID.String()),
		zap.String("booking_id", item.BookingID.String()),
	)
	s.escalations.Notify(ctx, escalation, message)
	s.bookings.Broadcast(ctx, item.BookingID)
	events.Emit(ctx, s.events, s.log, events.BookingEscalated, item.BookingID.String(), map[string]any{
		"reason":         string(escalationdomain.ReasonClientRequestedHelp),
		"reassignmentId": item.ID.String(),
	})
	return s.Get(ctx, item.ID)
}

func (s *Service) AdminReassign(ctx context.Context, req domain.AdminReassignRequest) (*domain.BookingReassignment, error) {
	if req.BookingID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	nannyID := strings.TrimSpace(req.NannyID)
	if nannyID == "" {
		return nil, domain.ErrInvalidNanny
	}
	adminID := strings.TrimSpace(req.AdminID)
	if adminID == "" {
		adminID = "admin"
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !containsStatus(staffableStatuses, b.Status) {
		return nil, domain.ErrBookingNotReassigning
	}

	candidates, err := s.profiles.FindCandidates(ctx, profiledomain.CandidateFilter{
		UserIDs:          []string{nannyID},
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		ExcludeBookingID: b.ID,
		Limit:            1,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && nannyID != b.NannyID {
		return nil, bookingdomain.ErrRequestedNannyUnavailable
	}

	target := b.Status
	switch b.Status {
	case bookingdomain.StatusPending, bookingdomain.StatusReassigned, bookingdomain.StatusAdminInterventionRequired:
		target = bookingdomain.StatusConfirmed
	}

	now := s.clock.Now().UTC()
	resolvedBy := adminID
	item := &domain.BookingReassignment{
		ID:                  s.genID.Generate(),
		BookingID:           b.ID,
		OriginalNannyID:     b.NannyID,
		NewNannyID:          nannyID,
		ClientID:            b.ClientID,
		Reason:              domain.ReasonAdminInitiated,
		AlternativeNannyIDs: datatypes.NewJSONSlice([]string{}),
		ClientResponse:      domain.ResponseAccepted,
		ResolvedBy:          &resolvedBy,
		ResolvedAt:          &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var updated *bookingdomain.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CloseOpen(ctx, tx, b.ID, adminID, now); err != nil {
			return err
		}
		var err error
		updated, err = s.bookings.AssignNanny(ctx, tx, b.ID, nannyID, []bookingdomain.Status{b.Status}, target)
		if err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordReassignment(ctx, string(domain.ReasonAdminInitiated), "reassigned")
	s.log.Info("booking reassigned by admin",
		zap.String("booking_id", b.ID.String()),
		zap.String("admin_id", adminID),
		zap.String("original_nanny_id", b.NannyID),
		zap.String("new_nanny_id", nannyID),
		zap.String("to_status", string(target)),
	)

	if s.auditSvc != nil {
		targetID := b.ID.String()
		metadata := map[string]any{
			"from_status":       string(b.Status),
			"to_status":         string(target),
			"original_nanny_id": b.NannyID,
			"new_nanny_id":      nannyID,
		}
		if note := strings.TrimSpace(req.Note); note != "" {
			metadata["note"] = note
		}
		if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &adminID, "booking.reassign", auditdomain.TargetBooking, &targetID, metadata); err != nil {
			s.log.Warn("failed to write audit log", zap.String("action", "booking.reassign"), zap.Error(err))
		}
	}

	s.send(ctx, notificationdomain.SendRequest{
		UserID:  updated.ClientID,
		Type:    notificationdomain.TypeBookingReassigned,
		Title:   "Your booking has a new nanny",
		Message: "Our team assigned a new nanny to your booking starting " + updated.StartDate.Format(dateLayout) + ".",
		Data:    reassignedPayload(item),
	})
	if nannyID != b.NannyID {
		s.notifyAssignment(ctx, updated, nannyID)
	}
	s.bookings.Broadcast(ctx, b.ID)
	events.Emit(ctx, s.events, s.log, events.BookingReassigned, b.ID.String(), reassignedPayload(item))
	return item, nil
}

func (s *Service) EscalateExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	items, err := s.repo.ListExpired(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return escalated, err
		}
		ok, err := s.expire(ctx, item)
		if err != nil {
			s.log.Warn("failed to escalate expired reassignment",
				zap.String("reassignment_id", item.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			escalated++
		}
	}
	return escalated, nil
}

// expire closes one unanswered reassignment. Bookings that moved on in
// the meantime are closed without an escalation.
func (s *Service) expire(ctx context.Context, item domain.BookingReassignment) (bool, error) {
	message := "The client did not answer the reassignment for booking " + item.BookingID.String() + " in time."
	var escalation *escalationdomain.Escalation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Resolve(ctx, tx, item.ID, domain.ResponsePending, domain.ResolvedBySystem, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrReassignmentClosed
		}
		_, err = s.bookings.Transition(ctx, tx, item.BookingID,
			[]bookingdomain.Status{bookingdomain.StatusReassigned}, bookingdomain.StatusAdminInterventionRequired)
		if errors.Is(err, bookingdomain.ErrStatusConflict) {
			return nil
		}
		if err != nil {
			return err
		}
		escalation, err = s.escalations.RaiseTx(ctx, tx, escalationdomain.RaiseRequest{
			BookingID: item.BookingID,
			Reason:    escalationdomain.ReasonReassignmentTimeout,
			Message:   message,
			Context: map[string]any{
				"reassignmentId": item.ID.String(),
				"clientId":       item.ClientID,
				"newPayeeId":     item.NewNannyID,
			},
		})
		return err
	})
	if errors.Is(err, domain.ErrReassignmentClosed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if escalation == nil {
		return false, nil
	}

	s.obsMetrics.RecordReassignment(ctx, string(item.Reason), "expired")
	s.log.Warn("reassignment expired",
		zap.String("reassignment_id", item.ID.String()),
		zap.String("booking_id", item.BookingID.String()),
	)
	s.escalations.Notify(ctx, escalation, message)
	s.bookings.Broadcast(ctx, item.BookingID)
	events.Emit(ctx, s.events, s.log, events.BookingEscalated, item.BookingID.String(), map[string]any{
		"reason":         string(escalationdomain.ReasonReassignmentTimeout),
		"reassignmentId": item.ID.String(),
	})
	return true, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.BookingReassignment, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrReassignmentNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, bookingID snowflake.ID) ([]domain.BookingReassignment, error) {
	if bookingID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	return s.repo.ListByBooking(ctx, s.db, bookingID)
}

func (s *Service) notifyReassigned(ctx context.Context, b *bookingdomain.Booking, item *domain.BookingReassignment, nanny *profiledomain.Candidate) {
	payload := reassignedPayload(item)

	s.send(ctx, notificationdomain.SendRequest{
		UserID:   item.ClientID,
		Type:     notificationdomain.TypeReassignmentConfirm,
		Title:    "Please confirm your new nanny",
		Message:  "Your nanny is no longer available. We have proposed " + nanny.FullName + " for your booking starting " + b.StartDate.Format(dateLayout) + ".",
		Data:     payload,
		Priority: notificationdomain.PriorityUrgent,
	})
	s.notifyAssignment(ctx, b, item.NewNannyID)

	if s.notifications == nil {
		return
	}
	if s.profiles != nil {
		client, err := s.profiles.Get(ctx, item.ClientID)
		if err == nil && strings.TrimSpace(client.Email) != "" {
			if err := s.notifications.SendEmail(ctx, []string{client.Email}, email.TemplateBookingReassigned, map[string]any{
				"client_name":    client.FullName,
				"booking_id":     b.ID.String(),
				"new_nanny_name": nanny.FullName,
			}); err != nil {
				s.log.Warn("failed to email reassignment to client", zap.String("booking_id", b.ID.String()), zap.Error(err))
			}
		}
	}
	if _, err := s.notifications.NotifyAdmins(ctx, notificationdomain.AdminNotice{
		Type:          notificationdomain.TypeReassignmentInfo,
		Title:         "Booking reassigned",
		Message:       "Booking " + b.ID.String() + " moved from " + item.OriginalNannyID + " to " + item.NewNannyID + ".",
		Data:          payload,
		EmailTemplate: email.TemplateReassignmentAdminInfo,
		EmailData: map[string]any{
			"booking_id":        b.ID.String(),
			"original_nanny_id": item.OriginalNannyID,
			"new_nanny_id":      item.NewNannyID,
			"reason":            string(item.Reason),
			"alternatives":      strings.Join(item.AlternativeNannyIDs, ", "),
		},
	}); err != nil {
		s.log.Warn("failed to notify admins of reassignment", zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

func (s *Service) notifyAssignment(ctx context.Context, b *bookingdomain.Booking, nannyID string) {
	s.send(ctx, notificationdomain.SendRequest{
		UserID:  nannyID,
		Type:    notificationdomain.TypeBookingAssignment,
		Title:   "New booking assignment",
		Message: "You have been assigned to a booking starting " + b.StartDate.Format(dateLayout) + ".",
		Data: map[string]any{
			"bookingId": b.ID.String(),
			"clientId":  b.ClientID,
			"category":  string(b.Category),
		},
	})

	if s.notifications == nil || s.profiles == nil {
		return
	}
	nanny, err := s.profiles.Get(ctx, nannyID)
	if err != nil || strings.TrimSpace(nanny.Email) == "" {
		return
	}
	if err := s.notifications.SendEmail(ctx, []string{nanny.Email}, email.TemplateBookingAssignment, map[string]any{
		"nanny_name": nanny.FullName,
		"booking_id": b.ID.String(),
		"start_date": b.StartDate.Format(dateLayout),
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

func reassignedPayload(item *domain.BookingReassignment) map[string]any {
	alternatives := []string(item.AlternativeNannyIDs)
	if alternatives == nil {
		alternatives = []string{}
	}
	return map[string]any{
		"bookingId":           item.BookingID.String(),
		"reassignmentId":      item.ID.String(),
		"newPayeeId":          item.NewNannyID,
		"alternativePayeeIds": alternatives,
		"reason":              string(item.Reason),
	}
}

func containsStatus(statuses []bookingdomain.Status, status bookingdomain.Status) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

func appendUnique(values []string, value string) []string {
	if value == "" {
		return values
	}
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
