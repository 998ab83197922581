package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeClient ActorType = "client"
	ActorTypeNanny  ActorType = "nanny"
)

// Target types recorded on audit entries.
const (
	TargetBooking              = "booking"
	TargetEscalation           = "escalation"
	TargetPaymentMethod        = "client_payment_method"
	TargetPaymentAuthorization = "payment_authorization"
	TargetUnknown              = "unknown"
)

// AuditLog is one privileged or money-moving action. BookingID is set
// whenever the action concerns a booking so its trail can be pulled in
// one query.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	BookingID  *string           `json:"booking_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	BookingID  string
	StartAt    *time.Time
	EndAt      *time.Time
	AfterID    int64
	Limit      int
}
