package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/apperror"
	"gorm.io/gorm"
)

type PostRequest struct {
	SourceType LedgerSourceType
	SourceID   snowflake.ID
	Currency   string
	OccurredAt time.Time
	Postings   []Posting
}

type Service interface {
	// PostTx writes a balanced entry inside tx. Posting the same source
	// twice is a no-op that reports inserted=false.
	PostTx(ctx context.Context, tx *gorm.DB, req PostRequest) (bool, error)
	Post(ctx context.Context, req PostRequest) (bool, error)
	// Balance is debits minus credits for an account in one currency.
	Balance(ctx context.Context, account LedgerAccountCode, currency string) (int64, error)
}

var (
	ErrInvalidSourceType    = apperror.Validation("invalid_source_type")
	ErrInvalidSourceID      = apperror.Validation("invalid_source_id")
	ErrInvalidCurrency      = apperror.Validation("invalid_currency")
	ErrInvalidOccurredAt    = apperror.Validation("invalid_occurred_at")
	ErrInvalidEntryLines    = apperror.Validation("invalid_entry_lines")
	ErrInvalidAccount       = apperror.Validation("invalid_account")
	ErrInvalidLineAmount    = apperror.Validation("invalid_line_amount")
	ErrInvalidLineDirection = apperror.Validation("invalid_line_direction")
	ErrUnbalancedEntry      = apperror.Validation("unbalanced_entry")
)
