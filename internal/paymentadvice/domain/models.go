package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentAdvice tells a nanny what was earned for one captured period.
// Rows are immutable apart from delivery bookkeeping.
type PaymentAdvice struct {
	ID                 snowflake.ID `json:"id"`
	BookingID          snowflake.ID `json:"booking_id"`
	AuthorizationID    snowflake.ID `json:"authorization_id"`
	NannyID            string       `json:"nanny_id"`
	PeriodStart        time.Time    `json:"period_start"`
	PeriodEnd          time.Time    `json:"period_end"`
	GrossAmount        int64        `json:"gross_amount"`
	CommissionDeducted int64        `json:"commission_deducted"`
	NetAmount          int64        `json:"net_amount"`
	Currency           string       `json:"currency"`
	IssuedAt           time.Time    `json:"issued_at"`
	DeliveredAt        *time.Time   `json:"delivered_at,omitempty"`
	DeliveryAttempts   int          `json:"delivery_attempts"`
}

func (PaymentAdvice) TableName() string { return "payment_advices" }

type ListFilter struct {
	NannyID string
	AfterID int64
	Limit   int
}
