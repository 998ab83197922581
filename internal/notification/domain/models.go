package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeBookingAssignment   Type = "booking_assignment"
	TypeBookingCancelled    Type = "booking_cancelled"
	TypeBookingReassigned   Type = "booking_reassigned"
	TypeReassignmentConfirm Type = "reassignment_confirm_request"
	TypeReassignmentInfo    Type = "reassignment_admin_info"
	TypeAdminEscalation     Type = "admin_escalation"
	TypePaymentAdvice       Type = "payment_advice"
	TypeInvoice             Type = "invoice"
	TypePaymentFailed       Type = "payment_failed"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID        snowflake.ID      `json:"id"`
	UserID    string            `json:"user_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      datatypes.JSONMap `json:"data,omitempty"`
	Priority  Priority          `json:"priority"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

type ListFilter struct {
	UserID     string
	UnreadOnly bool
	AfterID    int64
	Limit      int
}
