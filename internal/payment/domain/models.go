package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// Authorization is the hold placed for one billing period of a booking.
// Only one non-failed row may exist per (booking_id, period_start).
type Authorization struct {
	ID                      snowflake.ID `json:"id"`
	BookingID               snowflake.ID `json:"booking_id"`
	PeriodStart             time.Time    `json:"period_start"`
	PeriodEnd               time.Time    `json:"period_end"`
	Amount                  int64        `json:"amount"`
	Currency                string       `json:"currency"`
	Provider                string       `json:"provider"`
	Reference               string       `json:"reference"`
	ProviderAuthorizationID *string      `json:"provider_authorization_id,omitempty"`
	Status                  Status       `json:"status"`
	FailureReason           *string      `json:"failure_reason,omitempty"`
	AuthorizedAt            *time.Time   `json:"authorized_at,omitempty"`
	CapturedAt              *time.Time   `json:"captured_at,omitempty"`
	FailedAt                *time.Time   `json:"failed_at,omitempty"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

func (Authorization) TableName() string { return "payment_authorizations" }

// PaymentMethod is the reusable card authorization a client saved with a
// provider.
type PaymentMethod struct {
	ClientID          string    `json:"client_id"`
	Provider          string    `json:"provider"`
	AuthorizationCode string    `json:"-"`
	Email             string    `json:"email"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "client_payment_methods" }

// Failure reasons stored on failed authorizations.
const (
	FailureReasonDeclined         = "declined"
	FailureReasonGatewayError     = "gateway_error"
	FailureReasonNoPaymentMethod  = "no_payment_method"
	FailureReasonBookingCancelled = "booking_cancelled"
	FailureReasonVerifyFailed     = "verification_failed"
)
