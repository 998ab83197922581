package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending                   Status = "pending"
	StatusConfirmed                 Status = "confirmed"
	StatusReassigned                Status = "reassigned"
	StatusAdminInterventionRequired Status = "admin_intervention_required"
	StatusActive                    Status = "active"
	StatusCompleted                 Status = "completed"
	StatusCancelled                 Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:                   {StatusConfirmed, StatusReassigned, StatusAdminInterventionRequired, StatusCancelled},
	StatusConfirmed:                 {StatusActive, StatusCancelled, StatusReassigned, StatusAdminInterventionRequired},
	StatusReassigned:                {StatusActive, StatusConfirmed, StatusAdminInterventionRequired, StatusCancelled},
	StatusAdminInterventionRequired: {StatusConfirmed, StatusReassigned, StatusCancelled},
	StatusActive:                    {StatusCompleted, StatusReassigned, StatusAdminInterventionRequired},
}

// CanTransition reports whether from -> to is an edge of the booking
// state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReassigned, StatusAdminInterventionRequired,
		StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Billable statuses are the ones the payment sweeps act on.
var BillableStatuses = []Status{StatusPending, StatusConfirmed, StatusReassigned, StatusActive}

type Booking struct {
	ID                     snowflake.ID                `json:"id"`
	ClientID               string                      `json:"client_id"`
	NannyID                string                      `json:"nanny_id"`
	Category               revenuesplit.Category       `json:"category"`
	Status                 Status                      `json:"status"`
	StartDate              time.Time                   `json:"start_date"`
	EndDate                *time.Time                  `json:"end_date,omitempty"`
	BaseRate               int64                       `json:"base_rate"`
	AdditionalServicesCost int64                       `json:"additional_services_cost"`
	TotalCost              int64                       `json:"total_cost"`
	Currency               string                      `json:"currency"`
	HomeSize               revenuesplit.HomeSize       `json:"home_size"`
	LivingArrangement      string                      `json:"living_arrangement"`
	RequiredSkills         datatypes.JSONSlice[string] `json:"required_skills"`
	Notes                  *string                     `json:"notes,omitempty"`
	CreatedAt              time.Time                   `json:"created_at"`
	UpdatedAt              time.Time                   `json:"updated_at"`
	CancelledAt            *time.Time                  `json:"cancelled_at,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// Days counts calendar days covered by the booking, both ends included.
// Open-ended bookings count as zero.
func (b Booking) Days() int {
	return DaysBetween(b.StartDate, b.EndDate)
}

// SplitInput maps the booking onto the revenue split engine. The total
// cost is the rate for both categories.
func (b Booking) SplitInput() revenuesplit.Input {
	return revenuesplit.Input{
		Category:    b.Category,
		Rate:        b.TotalCost,
		HomeSize:    b.HomeSize,
		BookingDays: b.Days(),
	}
}

// VisibleTo reports whether actor may read the booking.
func (b Booking) VisibleTo(actor Actor) bool {
	switch actor.Role {
	case profiledomain.RoleAdmin:
		return true
	case profiledomain.RoleClient:
		return actor.ID != "" && actor.ID == b.ClientID
	case profiledomain.RoleNanny:
		return actor.ID != "" && actor.ID == b.NannyID
	}
	return false
}

// Financials is the split frozen at first capture.
type Financials struct {
	BookingID         snowflake.ID          `json:"booking_id"`
	Category          revenuesplit.Category `json:"category"`
	HomeSize          revenuesplit.HomeSize `json:"home_size"`
	Rate              int64                 `json:"rate"`
	BookingDays       int                   `json:"booking_days"`
	FixedFee          int64                 `json:"fixed_fee"`
	CommissionPercent int64                 `json:"commission_percent"`
	CommissionAmount  int64                 `json:"commission_amount"`
	PayerTotal        int64                 `json:"payer_total"`
	PayeeNet          int64                 `json:"payee_net"`
	CalculatedAt      time.Time             `json:"calculated_at"`
	CorrectedAt       *time.Time            `json:"corrected_at,omitempty"`
	CorrectedBy       *string               `json:"corrected_by,omitempty"`
	CorrectionReason  *string               `json:"correction_reason,omitempty"`
}

func (Financials) TableName() string { return "booking_financials" }

// Balanced checks the two split identities.
func (f Financials) Balanced() bool {
	return f.PayerTotal == f.FixedFee+f.CommissionAmount &&
		f.PayeeNet == f.Rate-f.CommissionAmount
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role profiledomain.Role
}

type ListFilter struct {
	ClientID string
	NannyID  string
	Statuses []Status
	AfterID  int64
	Limit    int
}

// DaysBetween counts whole days from start to end inclusive.
func DaysBetween(start time.Time, end *time.Time) int {
	if end == nil {
		return 0
	}
	from := TruncateDay(start)
	to := TruncateDay(*end)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
