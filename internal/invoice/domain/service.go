package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"github.com/smallbiznis/nannyhub/pkg/db/pagination"
	"gorm.io/gorm"
)

type ItemInput struct {
	Description string
	Amount      int64
}

type GenerateRequest struct {
	BookingID       snowflake.ID
	AuthorizationID snowflake.ID
	ClientID        string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Currency        string
	Items           []ItemInput
}

type ListRequest struct {
	pagination.Pagination
	ClientID string `form:"-"`
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	// GenerateTx writes the invoice for a captured period inside tx. The
	// total is the sum of the items. A second call for the same period
	// returns the first invoice.
	GenerateTx(ctx context.Context, tx *gorm.DB, req GenerateRequest) (*Invoice, error)
	Get(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListForClient(ctx context.Context, req ListRequest) (ListResponse, error)
	Render(ctx context.Context, inv *Invoice) ([]byte, error)
	// Deliver emails the invoice PDF to the client.
	Deliver(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidBooking     = apperror.Validation("invalid_booking")
	ErrInvalidClient      = apperror.Validation("invalid_client")
	ErrInvalidPeriod      = apperror.Validation("invalid_period")
	ErrInvalidItems       = apperror.Validation("invalid_invoice_items")
	ErrInvalidPageToken   = apperror.Validation("invalid_page_token")
	ErrInvoiceNotFound    = apperror.NotFound("invoice_not_found")
	ErrClientEmailMissing = apperror.Validation("client_email_missing")
)
