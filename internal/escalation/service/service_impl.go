package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/escalation/domain"
	notificationdomain "github.com/smallbiznis/nannyhub/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	"github.com/smallbiznis/nannyhub/internal/providers/email"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Notifications notificationdomain.Service
	AuditSvc      auditdomain.Service `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
	Clock         clock.Clock         `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	notifications notificationdomain.Service
	auditSvc      auditdomain.Service
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
		log:           p.Log.Named("escalation.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		notifications: p.Notifications,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
		clock:         c,
	}
}

func (s *Service) RaiseTx(ctx context.Context, tx *gorm.DB, req domain.RaiseRequest) (*domain.Escalation, error) {
	if req.BookingID == 0 {
		return nil, domain.ErrInvalidBooking
	}
	if !validReason(req.Reason) {
		return nil, domain.ErrInvalidReason
	}

	payload := map[string]any{}
	for key, value := range req.Context {
		if key != "" {
			payload[key] = value
		}
	}
	payload["bookingId"] = req.BookingID.String()
	payload["reason"] = string(req.Reason)

	e := &domain.Escalation{
		ID:        s.genID.Generate(),
		BookingID: req.BookingID,
		Reason:    req.Reason,
		Status:    domain.StatusOpen,
		Context:   datatypes.JSONMap(payload),
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx, e); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordEscalation(ctx, string(req.Reason))
	s.log.Warn("booking escalated",
		zap.String("escalation_id", e.ID.String()),
		zap.String("booking_id", req.BookingID.String()),
		zap.String("reason", string(req.Reason)),
	)
	return e, nil
}

func (s *Service) Notify(ctx context.Context, e *domain.Escalation, message string) int {
	if e == nil || s.notifications == nil {
		return 0
	}
	if strings.TrimSpace(message) == "" {
		message = "Booking " + e.BookingID.String() + " needs admin intervention."
	}

	data := map[string]any{"escalationId": e.ID.String()}
	for key, value := range e.Context {
		data[key] = value
	}

	count, err := s.notifications.NotifyAdmins(ctx, notificationdomain.AdminNotice{
		Type:          notificationdomain.TypeAdminEscalation,
		Title:         "Booking needs admin intervention",
		Message:       message,
		Data:          data,
		EmailTemplate: email.TemplateAdminEscalation,
		EmailData: map[string]any{
			"booking_id": e.BookingID.String(),
			"reason":     string(e.Reason),
			"message":    message,
			"candidates": data["candidates"],
		},
	})
	if err != nil {
		s.log.Warn("failed to notify admins of escalation",
			zap.String("escalation_id", e.ID.String()),
			zap.Error(err),
		)
	}
	return count
}

func (s *Service) Raise(ctx context.Context, req domain.RaiseRequest) (*domain.Escalation, error) {
	e, err := s.RaiseTx(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, e, req.Message)
	return e, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{Limit: req.Limit()}

	switch status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status))); status {
	case "":
		filter.Status = domain.StatusOpen
	case "all":
	case domain.StatusOpen, domain.StatusResolved:
		filter.Status = status
	default:
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}

	if raw := strings.TrimSpace(req.BookingID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidBooking
		}
		filter.BookingID = id
	}

	cursor, err := req.Cursor()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	filter.AfterID = cursor.AfterID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, filter.Limit, func(e domain.Escalation) int64 {
		return e.ID.Int64()
	})
	return domain.ListResponse{PageInfo: pageInfo, Escalations: items}, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.Escalation, error) {
	resolvedBy := strings.TrimSpace(req.ResolvedBy)
	if resolvedBy == "" {
		resolvedBy = "admin"
	}

	affected, err := s.repo.Resolve(ctx, s.db, req.ID, resolvedBy, req.Note, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	e, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrEscalationNotFound
	}
	if affected == 0 {
		return nil, domain.ErrEscalationResolved
	}

	if s.auditSvc != nil {
		targetID := e.ID.String()
		metadata := map[string]any{
			"booking_id": e.BookingID.String(),
			"reason":     string(e.Reason),
		}
		if req.Note != nil {
			metadata["note"] = *req.Note
		}
		if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &resolvedBy, "escalation.resolve", auditdomain.TargetEscalation, &targetID, metadata); err != nil {
			s.log.Warn("failed to audit escalation resolve", zap.Error(err))
		}
	}
	return e, nil
}

func validReason(reason domain.Reason) bool {
	switch reason {
	case domain.ReasonNoCandidate,
		domain.ReasonClientRequestedHelp,
		domain.ReasonReassignmentTimeout,
		domain.ReasonCaptureFailed:
		return true
	}
	return false
}
