package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Reason string

const (
	ReasonNoCandidate         Reason = "no_candidate"
	ReasonClientRequestedHelp Reason = "client_requested_help"
	ReasonReassignmentTimeout Reason = "reassignment_timeout"
	ReasonCaptureFailed       Reason = "capture_failed"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type Escalation struct {
	ID             snowflake.ID      `json:"id"`
	BookingID      snowflake.ID      `json:"booking_id"`
	Reason         Reason            `json:"reason"`
	Status         Status            `json:"status"`
	Context        datatypes.JSONMap `json:"context,omitempty"`
	ResolvedBy     *string           `json:"resolved_by,omitempty"`
	ResolutionNote *string           `json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (Escalation) TableName() string { return "escalations" }

type ListFilter struct {
	Status    Status
	BookingID snowflake.ID
	AfterID   int64
	Limit     int
}
