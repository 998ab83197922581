package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
)

type RejectRequest struct {
	BookingID snowflake.ID `json:"-"`
	NannyID   string       `json:"-"`
	Reason    string       `json:"reason"`
	Note      string       `json:"note"`
}

type RejectResponse struct {
	Reassignment *BookingReassignment `json:"reassignment"`
}

type RespondRequest struct {
	ReassignmentID snowflake.ID `json:"-"`
	ClientID       string       `json:"-"`
	Accept         bool         `json:"accept"`
	// NannyID optionally picks one of the alternatives instead of the
	// proposed nanny.
	NannyID string `json:"nanny_id"`
}

type AdminReassignRequest struct {
	BookingID snowflake.ID `json:"-"`
	AdminID   string       `json:"-"`
	NannyID   string       `json:"nanny_id"`
	Note      string       `json:"note"`
}

type Service interface {
	HandleRejection(ctx context.Context, req RejectRequest) (*BookingReassignment, error)
	Respond(ctx context.Context, req RespondRequest) (*BookingReassignment, error)
	AdminReassign(ctx context.Context, req AdminReassignRequest) (*BookingReassignment, error)
	// EscalateExpired hands unanswered reassignments to admins and
	// returns how many were escalated.
	EscalateExpired(ctx context.Context, now time.Time, limit int) (int, error)
	Get(ctx context.Context, id snowflake.ID) (*BookingReassignment, error)
	List(ctx context.Context, bookingID snowflake.ID) ([]BookingReassignment, error)
}

var (
	ErrInvalidBooking        = apperror.Validation("invalid_booking")
	ErrInvalidNanny          = apperror.Validation("invalid_nanny")
	ErrInvalidReason         = apperror.Validation("invalid_reassignment_reason")
	ErrInvalidAlternative    = apperror.Validation("nanny_not_offered")
	ErrReassignmentNotFound  = apperror.NotFound("reassignment_not_found")
	ErrReassignmentClosed    = apperror.Conflict("reassignment_already_resolved")
	ErrBookingNotReassigning = apperror.Conflict("booking_not_reassignable")
	ErrNotAssignedNanny      = apperror.Forbidden("nanny_not_assigned")
	ErrForbidden             = apperror.Forbidden("reassignment_forbidden")
	ErrNoCandidate           = apperror.NoCandidate("no_replacement_candidate")
)
