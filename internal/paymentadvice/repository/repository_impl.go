package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *domain.PaymentAdvice) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_advices (
			id, booking_id, authorization_id, nanny_id, period_start, period_end,
			gross_amount, commission_deducted, net_amount, currency, issued_at, delivery_attempts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (booking_id, period_start) DO NOTHING`,
		a.ID, a.BookingID, a.AuthorizationID, a.NannyID, a.PeriodStart, a.PeriodEnd,
		a.GrossAmount, a.CommissionDeducted, a.NetAmount, a.Currency, a.IssuedAt,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentAdvice, error) {
	return r.findOne(ctx, db.Where("id = ?", id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*domain.PaymentAdvice, error) {
	return r.findOne(ctx, db.Where("booking_id = ? AND period_start = ?", bookingID, periodStart))
}

func (r *repo) findOne(ctx context.Context, stmt *gorm.DB) (*domain.PaymentAdvice, error) {
	var out []domain.PaymentAdvice
	if err := stmt.WithContext(ctx).Model(&domain.PaymentAdvice{}).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.PaymentAdvice, error) {
	stmt := db.WithContext(ctx).Model(&domain.PaymentAdvice{})
	if filter.NannyID != "" {
		stmt = stmt.Where("nanny_id = ?", filter.NannyID)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var out []domain.PaymentAdvice
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ListUndelivered(ctx context.Context, db *gorm.DB, maxAttempts, limit int) ([]domain.PaymentAdvice, error) {
	var out []domain.PaymentAdvice
	err := db.WithContext(ctx).Model(&domain.PaymentAdvice{}).
		Where("delivered_at IS NULL").
		Where("delivery_attempts < ?", maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) RecordDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, deliveredAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_advices
		SET delivery_attempts = delivery_attempts + 1,
			delivered_at = COALESCE(delivered_at, ?)
		WHERE id = ?`,
		deliveredAt, id,
	).Error
}
