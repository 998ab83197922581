package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invoice is the client-facing statement of one captured period.
type Invoice struct {
	ID              snowflake.ID `json:"id"`
	BookingID       snowflake.ID `json:"booking_id"`
	AuthorizationID snowflake.ID `json:"authorization_id"`
	ClientID        string       `json:"client_id"`
	InvoiceNumber   string       `json:"invoice_number"`
	PeriodStart     time.Time    `json:"period_start"`
	PeriodEnd       time.Time    `json:"period_end"`
	TotalAmount     int64        `json:"total_amount"`
	Currency        string       `json:"currency"`
	IssuedAt        time.Time    `json:"issued_at"`
	Items           []Item       `json:"items" gorm:"-"`
}

func (Invoice) TableName() string { return "invoices" }

type Item struct {
	ID          snowflake.ID `json:"id"`
	InvoiceID   snowflake.ID `json:"-"`
	Position    int          `json:"position"`
	Description string       `json:"description"`
	Amount      int64        `json:"amount"`
}

func (Item) TableName() string { return "invoice_items" }

type ListFilter struct {
	ClientID string
	AfterID  int64
	Limit    int
}
