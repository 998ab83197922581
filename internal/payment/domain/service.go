package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
)

type AuthorizeRequest struct {
	BookingID   snowflake.ID `json:"-"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
}

type ListRequest struct {
	pagination.Pagination
	BookingID snowflake.ID `form:"-"`
}

type ListResponse struct {
	pagination.PageInfo
	Authorizations []Authorization `json:"authorizations"`
}

type SavePaymentMethodRequest struct {
	ClientID          string `json:"-"`
	Provider          string `json:"provider"`
	AuthorizationCode string `json:"authorization_code"`
	Email             string `json:"email"`
}

// SweepResult counts what a scheduler pass did.
type SweepResult struct {
	Processed int
	Succeeded int
	Failed    int
}

type Service interface {
	// Authorize places the hold for one period. A zero period means the
	// period in progress, or the first period when the booking has not
	// started.
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	// AuthorizeNext authorizes every period of the booking that is due.
	AuthorizeNext(ctx context.Context, bookingID snowflake.ID) ([]Authorization, error)
	Capture(ctx context.Context, authorizationID snowflake.ID) (*Authorization, error)
	Get(ctx context.Context, id snowflake.ID) (*Authorization, error)
	ListForBooking(ctx context.Context, req ListRequest) (ListResponse, error)

	// DueForAuthorization returns the periods of billable bookings that
	// have no live authorization yet.
	DueForAuthorization(ctx context.Context, now time.Time, limit int) ([]DuePeriod, error)
	// DueForCapture returns authorized rows whose capture time has come.
	DueForCapture(ctx context.Context, now time.Time, limit int) ([]Authorization, error)
	AuthorizeDue(ctx context.Context, now time.Time, limit int) (SweepResult, error)
	CaptureDue(ctx context.Context, now time.Time, limit int) (SweepResult, error)

	SavePaymentMethod(ctx context.Context, req SavePaymentMethodRequest) (*PaymentMethod, error)
}

// DuePeriod is a billing period still waiting for its hold.
type DuePeriod struct {
	BookingID snowflake.ID
	Period    Period
}

var (
	ErrInvalidBooking           = apperror.Validation("invalid_booking")
	ErrInvalidClient            = apperror.Validation("invalid_client")
	ErrInvalidPeriod            = apperror.Validation("invalid_billing_period")
	ErrInvalidProvider          = apperror.Validation("invalid_payment_provider")
	ErrInvalidAuthorizationCode = apperror.Validation("invalid_authorization_code")
	ErrInvalidEmail             = apperror.Validation("invalid_email")
	ErrInvalidConfig            = apperror.Validation("invalid_payment_provider_config")
	ErrInvalidPageToken         = apperror.Validation("invalid_page_token")
	ErrProviderNotFound         = apperror.Validation("payment_provider_not_found")
	ErrPaymentMethodMissing     = apperror.Validation("payment_method_missing")
	ErrAuthorizationDeclined    = apperror.Validation("authorization_declined")
	ErrAuthorizationNotFound    = apperror.NotFound("authorization_not_found")
	ErrAlreadyAuthorized        = apperror.Conflict("period_already_authorized")
	ErrAuthorizationConflict    = apperror.Conflict("authorization_status_conflict")
	ErrCaptureTooEarly          = apperror.Conflict("capture_not_due")
	ErrBookingNotBillable       = apperror.Conflict("booking_not_billable")
	ErrCaptureUnverified        = apperror.Conflict("capture_not_verified")
)
