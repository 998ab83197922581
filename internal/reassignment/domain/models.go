package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Reason string

const (
	ReasonNannyRejected    Reason = "nanny_rejected"
	ReasonNannyUnavailable Reason = "nanny_unavailable"
	ReasonAdminInitiated   Reason = "admin_initiated"
)

type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseRejected Response = "rejected"
)

// ResolvedBySystem marks reassignments closed by the timeout sweep.
const ResolvedBySystem = "system"

type BookingReassignment struct {
	ID                  snowflake.ID                `json:"id"`
	BookingID           snowflake.ID                `json:"booking_id"`
	OriginalNannyID     string                      `json:"original_nanny_id"`
	NewNannyID          string                      `json:"new_nanny_id"`
	ClientID            string                      `json:"client_id"`
	Reason              Reason                      `json:"reason"`
	AlternativeNannyIDs datatypes.JSONSlice[string] `json:"alternative_nanny_ids"`
	ClientResponse      Response                    `json:"client_response"`
	ResolvedBy          *string                     `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time                  `json:"resolved_at,omitempty"`
	ExpiresAt           *time.Time                  `json:"expires_at,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

func (BookingReassignment) TableName() string { return "booking_reassignments" }

// Open reports whether the client can still answer.
func (r BookingReassignment) Open() bool {
	return r.ClientResponse == ResponsePending && r.ResolvedAt == nil
}

// Offers reports whether nannyID is the proposed nanny or one of the
// alternatives captured with the reassignment.
func (r BookingReassignment) Offers(nannyID string) bool {
	if nannyID == r.NewNannyID {
		return true
	}
	for _, id := range r.AlternativeNannyIDs {
		if id == nannyID {
			return true
		}
	}
	return false
}

func (r Reason) Valid() bool {
	switch r {
	case ReasonNannyRejected, ReasonNannyUnavailable, ReasonAdminInitiated:
		return true
	}
	return false
}
