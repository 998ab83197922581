package repository

import (
	"context"

	"github.com/smallbiznis/nannyhub/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, code domain.LedgerAccountCode) (*domain.LedgerAccount, error) {
	var account domain.LedgerAccount
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, created_at FROM ledger_accounts WHERE code = ?`, code,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) InsertAccount(ctx context.Context, db *gorm.DB, account *domain.LedgerAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, code, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		account.ID, account.Code, account.Name, account.CreatedAt,
	).Error
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, source_type, source_id, currency, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_type, source_id) DO NOTHING`,
		entry.ID,
		entry.SourceType,
		entry.SourceID,
		entry.Currency,
		entry.OccurredAt,
		entry.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.LedgerEntryLine) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entry_lines (
			id, ledger_entry_id, account_id, direction, currency, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.LedgerEntryID,
		line.AccountID,
		string(line.Direction),
		line.Currency,
		line.Amount,
		line.CreatedAt,
	).Error
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB, code domain.LedgerAccountCode, currency string) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE WHEN l.direction = 'debit' THEN l.amount ELSE -l.amount END), 0)
		FROM ledger_entry_lines l
		JOIN ledger_accounts a ON a.id = l.account_id
		WHERE a.code = ? AND l.currency = ?`,
		code, currency,
	).Scan(&balance).Error
	return balance, err
}
