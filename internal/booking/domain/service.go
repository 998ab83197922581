package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateBookingRequest struct {
	ClientID               string     `json:"-"`
	RequestedNannyID       string     `json:"nanny_id"`
	Category               string     `json:"category"`
	StartDate              time.Time  `json:"start_date"`
	EndDate                *time.Time `json:"end_date"`
	BaseRate               int64      `json:"base_rate"`
	AdditionalServicesCost int64      `json:"additional_services_cost"`
	Currency               string     `json:"currency"`
	HomeSize               string     `json:"home_size"`
	LivingArrangement      string     `json:"living_arrangement"`
	RequiredSkills         []string   `json:"required_skills"`
	Notes                  *string    `json:"notes"`
}

type CreateBookingResponse struct {
	Booking *Booking            `json:"booking"`
	Quote   revenuesplit.Result `json:"quote"`
}

type QuoteRequest struct {
	Category               string     `json:"category"`
	HomeSize               string     `json:"home_size"`
	BaseRate               int64      `json:"base_rate"`
	AdditionalServicesCost int64      `json:"additional_services_cost"`
	StartDate              *time.Time `json:"start_date"`
	EndDate                *time.Time `json:"end_date"`
	Days                   int        `json:"days"`
}

type QuoteResponse struct {
	revenuesplit.Result
	Category    revenuesplit.Category `json:"category"`
	HomeSize    revenuesplit.HomeSize `json:"home_size"`
	Rate        int64                 `json:"rate"`
	BookingDays int                   `json:"booking_days"`
}

type ListRequest struct {
	pagination.Pagination
	Actor    Actor  `form:"-"`
	Status   string `form:"status"`
	ClientID string `form:"client_id"`
	NannyID  string `form:"nanny_id"`
}

type ListResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

type CancelRequest struct {
	ID     snowflake.ID `json:"-"`
	Actor  Actor        `json:"-"`
	Reason string       `json:"reason"`
}

type CorrectFinancialsRequest struct {
	BookingID         snowflake.ID `json:"-"`
	CorrectedBy       string       `json:"-"`
	FixedFee          int64        `json:"fixed_fee"`
	CommissionPercent int64        `json:"commission_percent"`
	CommissionAmount  int64        `json:"commission_amount"`
	PayerTotal        int64        `json:"payer_total"`
	PayeeNet          int64        `json:"payee_net"`
	Reason            string       `json:"reason"`
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*CreateBookingResponse, error)
	// Get returns the booking when actor may see it.
	Get(ctx context.Context, id snowflake.ID, actor Actor) (*Booking, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Booking, error)
	GetTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Booking, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Cancel(ctx context.Context, req CancelRequest) (*Booking, error)

	// Transition moves the booking to `to` when its current status is one
	// of from and the edge is allowed. tx may be nil.
	Transition(ctx context.Context, tx *gorm.DB, id snowflake.ID, from []Status, to Status) (*Booking, error)
	// AssignNanny swaps the nanny under the same guard as Transition.
	AssignNanny(ctx context.Context, tx *gorm.DB, id snowflake.ID, nannyID string, from []Status, to Status) (*Booking, error)
	ActivateStarted(ctx context.Context, now time.Time, limit int) (int, error)
	CompleteEnded(ctx context.Context, now time.Time, limit int) (int, error)
	ListBillable(ctx context.Context, now time.Time, afterID int64, limit int) ([]Booking, error)

	// FinalizeFinancialsTx stores the split once and returns the stored row.
	FinalizeFinancialsTx(ctx context.Context, tx *gorm.DB, b *Booking) (*Financials, error)
	GetFinancials(ctx context.Context, bookingID snowflake.ID) (*Financials, error)
	CorrectFinancials(ctx context.Context, req CorrectFinancialsRequest) (*Financials, error)
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	// Split runs the engine for a stored booking without persisting.
	Split(b *Booking) (revenuesplit.Result, error)

	// Broadcast pushes the current row to realtime subscribers.
	Broadcast(ctx context.Context, id snowflake.ID)
}

var (
	ErrInvalidClient             = apperror.Validation("invalid_client")
	ErrInvalidStartDate          = apperror.Validation("invalid_start_date")
	ErrInvalidEndDate            = apperror.Validation("invalid_end_date")
	ErrInvalidBaseRate           = apperror.Validation("invalid_base_rate")
	ErrInvalidAdditionalCost     = apperror.Validation("invalid_additional_services_cost")
	ErrInvalidCurrency           = apperror.Validation("invalid_currency")
	ErrInvalidArrangement        = apperror.Validation("invalid_living_arrangement")
	ErrInvalidStatus             = apperror.Validation("invalid_booking_status")
	ErrInvalidPageToken          = apperror.Validation("invalid_page_token")
	ErrInvalidFinancials         = apperror.Validation("financials_not_balanced")
	ErrCorrectionReasonRequired  = apperror.Validation("correction_reason_required")
	ErrBookingNotFound           = apperror.NotFound("booking_not_found")
	ErrFinancialsNotFound        = apperror.NotFound("booking_financials_not_found")
	ErrStatusConflict            = apperror.Conflict("booking_status_conflict")
	ErrInvalidTransition         = apperror.Conflict("invalid_booking_transition")
	ErrNoCandidate               = apperror.NoCandidate("no_candidate_available")
	ErrRequestedNannyUnavailable = apperror.NoCandidate("requested_nanny_unavailable")
	ErrForbidden                 = apperror.Forbidden("booking_forbidden")
)
