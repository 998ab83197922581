package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string     `form:"action"`
	TargetType string     `form:"target_type"`
	TargetID   string     `form:"target_id"`
	ActorType  string     `form:"actor_type"`
	ActorID    string     `form:"actor_id"`
	BookingID  string     `form:"booking_id"`
	StartAt    *time.Time `form:"start_at" time_format:"2006-01-02T15:04:05Z07:00"`
	EndAt      *time.Time `form:"end_at" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog records an action. An empty actorType takes the actor from
	// ctx, falling back to system. Sensitive metadata keys are masked.
	AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = apperror.Validation("invalid_page_token")
	ErrInvalidTimeRange = apperror.Validation("invalid_time_range")
	ErrInvalidAction    = apperror.Validation("invalid_action")
)
