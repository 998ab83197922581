package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindAccount(ctx context.Context, db *gorm.DB, code LedgerAccountCode) (*LedgerAccount, error)
	InsertAccount(ctx context.Context, db *gorm.DB, account *LedgerAccount) error
	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)
	InsertLine(ctx context.Context, db *gorm.DB, line *LedgerEntryLine) error
	Balance(ctx context.Context, db *gorm.DB, code LedgerAccountCode, currency string) (int64, error)
}
