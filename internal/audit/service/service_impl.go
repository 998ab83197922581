package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	"github.com/smallbiznis/nannyhub/internal/audit/masking"
	"github.com/smallbiznis/nannyhub/internal/auditcontext"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Metadata keys that never reach the audit table in clear text.
var sensitiveKeys = []string{"authorization_code", "secret_key", "access_token", "password"}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = auditdomain.TargetUnknown
	}
	targetID = trimmed(targetID)

	payload := masking.MaskFields(metadata, sensitiveKeys...)
	if payload == nil {
		payload = map[string]any{}
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	resolvedType, resolvedID := resolveActor(ctx, strings.TrimSpace(actorType), actorID)
	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  resolvedType,
		ActorID:    resolvedID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		BookingID:  bookingOf(ctx, targetType, targetID, payload),
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  trimmed(ptr(auditcontext.IPAddressFromContext(ctx))),
		UserAgent:  trimmed(ptr(auditcontext.UserAgentFromContext(ctx))),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	cursor, err := req.Cursor()
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		BookingID:  req.BookingID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		AfterID:    cursor.AfterID,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, limit, func(item *auditdomain.AuditLog) int64 {
		return item.ID.Int64()
	})
	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item != nil {
			logs = append(logs, *item)
		}
	}
	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}

// resolveActor fills a missing actor from the request context. Sweeps
// and callers without one are recorded as system.
func resolveActor(ctx context.Context, actorType string, actorID *string) (string, *string) {
	if actorType == "" {
		ctxType, ctxID := auditcontext.ActorFromContext(ctx)
		actorType = ctxType
		if trimmed(actorID) == nil && ctxID != "" {
			actorID = &ctxID
		}
	}
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}
	return actorType, trimmed(actorID)
}

// bookingOf picks the booking an entry belongs to: the target itself, the
// booking route being served, or a booking_id in the metadata.
func bookingOf(ctx context.Context, targetType string, targetID *string, payload map[string]any) *string {
	if targetType == auditdomain.TargetBooking && targetID != nil {
		return targetID
	}
	if id := auditcontext.BookingIDFromContext(ctx); id != "" {
		return trimmed(&id)
	}
	switch v := payload["booking_id"].(type) {
	case string:
		return trimmed(&v)
	case snowflake.ID:
		s := v.String()
		return &s
	}
	return nil
}

func ptr(value string) *string { return &value }

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	if t == "" {
		return nil
	}
	return &t
}
