package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerEntryDirection represents debit or credit postings.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

type LedgerSourceType string

const (
	// SourceTypePaymentCapture posts the split of one captured period.
	SourceTypePaymentCapture LedgerSourceType = "payment_capture"
	// SourceTypeFinancialsCorrection posts the delta of an admin correction.
	SourceTypeFinancialsCorrection LedgerSourceType = "financials_correction"
)

type LedgerAccountCode string

const (
	// Assets
	AccountCodeCash LedgerAccountCode = "cash"

	// Liabilities
	AccountCodeNannyPayable LedgerAccountCode = "nanny_payable"

	// Revenue
	AccountCodeCommissionRevenue   LedgerAccountCode = "commission_revenue"
	AccountCodePlacementFeeRevenue LedgerAccountCode = "placement_fee_revenue"
)

var accountNames = map[LedgerAccountCode]string{
	AccountCodeCash:                "Cash",
	AccountCodeNannyPayable:        "Nanny payable",
	AccountCodeCommissionRevenue:   "Commission revenue",
	AccountCodePlacementFeeRevenue: "Placement fee revenue",
}

// AccountName returns the display name for a chart-of-accounts code.
func AccountName(code LedgerAccountCode) (string, bool) {
	name, ok := accountNames[code]
	return name, ok
}

// LedgerAccount defines a chart-of-accounts entry.
type LedgerAccount struct {
	ID        snowflake.ID      `json:"id"`
	Code      LedgerAccountCode `json:"code"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
}

func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry captures the immutable header for a financial event.
type LedgerEntry struct {
	ID         snowflake.ID     `json:"id"`
	SourceType LedgerSourceType `json:"source_type"`
	SourceID   snowflake.ID     `json:"source_id"`
	Currency   string           `json:"currency"`
	OccurredAt time.Time        `json:"occurred_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is a double-entry posting line.
type LedgerEntryLine struct {
	ID            snowflake.ID         `json:"id"`
	LedgerEntryID snowflake.ID         `json:"ledger_entry_id"`
	AccountID     snowflake.ID         `json:"account_id"`
	Direction     LedgerEntryDirection `json:"direction"`
	Currency      string               `json:"currency"`
	Amount        int64                `json:"amount"`
	CreatedAt     time.Time            `json:"created_at"`
}

func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }

// Posting is a line addressed by account code rather than id.
type Posting struct {
	Account   LedgerAccountCode
	Direction LedgerEntryDirection
	Amount    int64
}

// ValidateBalanced checks that debits equal credits. Zero-amount lines
// are allowed so fixed-shape postings stay uniform.
func ValidateBalanced(postings []Posting) error {
	var debit, credit int64
	for _, p := range postings {
		switch p.Direction {
		case LedgerEntryDirectionDebit:
			debit += p.Amount
		case LedgerEntryDirectionCredit:
			credit += p.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	if debit != credit {
		return ErrUnbalancedEntry
	}
	return nil
}
