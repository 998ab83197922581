package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"gorm.io/gorm"
)

type RaiseRequest struct {
	BookingID snowflake.ID
	Reason    Reason
	Message   string
	Context   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Status    string `form:"status"`
	BookingID string `form:"booking_id"`
}

type ListResponse struct {
	pagination.PageInfo
	Escalations []Escalation `json:"escalations"`
}

type ResolveRequest struct {
	ID         snowflake.ID `json:"-"`
	ResolvedBy string       `json:"-"`
	Note       *string      `json:"note"`
}

type Service interface {
	// RaiseTx records the escalation inside an open transaction. Admins
	// are not notified; call Notify after commit.
	RaiseTx(ctx context.Context, tx *gorm.DB, req RaiseRequest) (*Escalation, error)
	// Notify fans the escalation out to every admin.
	Notify(ctx context.Context, e *Escalation, message string) int
	// Raise records and notifies in one call.
	Raise(ctx context.Context, req RaiseRequest) (*Escalation, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Resolve(ctx context.Context, req ResolveRequest) (*Escalation, error)
}

var (
	ErrInvalidBooking     = apperror.Validation("invalid_booking")
	ErrInvalidReason      = apperror.Validation("invalid_escalation_reason")
	ErrInvalidStatus      = apperror.Validation("invalid_escalation_status")
	ErrInvalidPageToken   = apperror.Validation("invalid_page_token")
	ErrEscalationNotFound = apperror.NotFound("escalation_not_found")
	ErrEscalationResolved = apperror.Conflict("escalation_already_resolved")
)
