package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"gorm.io/gorm"
)

type IssueRequest struct {
	BookingID          snowflake.ID
	AuthorizationID    snowflake.ID
	NannyID            string
	PeriodStart        time.Time
	PeriodEnd          time.Time
	GrossAmount        int64
	CommissionDeducted int64
	Currency           string
}

type ListRequest struct {
	pagination.Pagination
	NannyID string `form:"-"`
}

type ListResponse struct {
	pagination.PageInfo
	Advices []PaymentAdvice `json:"payment_advices"`
}

type Service interface {
	// IssueTx writes the advice for a period inside the capture
	// transaction. Issuing the same period twice returns the first row.
	IssueTx(ctx context.Context, tx *gorm.DB, req IssueRequest) (*PaymentAdvice, error)
	Get(ctx context.Context, id snowflake.ID) (*PaymentAdvice, error)
	ListForNanny(ctx context.Context, req ListRequest) (ListResponse, error)
	Render(ctx context.Context, a *PaymentAdvice) ([]byte, error)
	// Deliver emails the rendered advice to the nanny and records the
	// attempt.
	Deliver(ctx context.Context, id snowflake.ID) error
	// DeliverPending retries advices that were never delivered.
	DeliverPending(ctx context.Context, limit int) (int, error)
}

const MaxDeliveryAttempts = 5

var (
	ErrInvalidBooking    = apperror.Validation("invalid_booking")
	ErrInvalidNanny      = apperror.Validation("invalid_nanny")
	ErrInvalidPeriod     = apperror.Validation("invalid_period")
	ErrInvalidAmount     = apperror.Validation("invalid_advice_amount")
	ErrInvalidPageToken  = apperror.Validation("invalid_page_token")
	ErrAdviceNotFound    = apperror.NotFound("payment_advice_not_found")
	ErrNannyEmailMissing = apperror.Validation("nanny_email_missing")
)
