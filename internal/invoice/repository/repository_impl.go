package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, booking_id, authorization_id, client_id, invoice_number,
			period_start, period_end, total_amount, currency, issued_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (booking_id, period_start) DO NOTHING`,
		inv.ID, inv.BookingID, inv.AuthorizationID, inv.ClientID, inv.InvoiceNumber,
		inv.PeriodStart, inv.PeriodEnd, inv.TotalAmount, inv.Currency, inv.IssuedAt,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_items (id, invoice_id, position, description, amount)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.InvoiceID, item.Position, item.Description, item.Amount,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db.Where("id = ?", id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*domain.Invoice, error) {
	return r.findOne(ctx, db.Where("booking_id = ? AND period_start = ?", bookingID, periodStart))
}

func (r *repo) findOne(ctx context.Context, stmt *gorm.DB) (*domain.Invoice, error) {
	var out []domain.Invoice
	if err := stmt.WithContext(ctx).Model(&domain.Invoice{}).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.Item, error) {
	var out []domain.Item
	err := db.WithContext(ctx).Model(&domain.Item{}).
		Where("invoice_id = ?", invoiceID).
		Order("position ASC").
		Find(&out).Error
	return out, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.ClientID != "" {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var out []domain.Invoice
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) CountIssuedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("issued_at >= ? AND issued_at < ?", from, to).
		Count(&count).Error
	return count, err
}
