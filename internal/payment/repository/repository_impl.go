package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, auth *domain.Authorization) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_authorizations (
			id, booking_id, period_start, period_end, amount, currency,
			provider, reference, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		auth.ID,
		auth.BookingID,
		auth.PeriodStart,
		auth.PeriodEnd,
		auth.Amount,
		auth.Currency,
		auth.Provider,
		auth.Reference,
		auth.Status,
		auth.CreatedAt,
		auth.UpdatedAt,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Authorization, error) {
	return r.findOne(ctx, db.Where("id = ?", id))
}

func (r *repo) FindLive(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*domain.Authorization, error) {
	return r.findOne(ctx, db.Where("booking_id = ? AND period_start = ? AND status <> ?", bookingID, periodStart, domain.StatusFailed))
}

func (r *repo) findOne(ctx context.Context, stmt *gorm.DB) (*domain.Authorization, error) {
	var out []domain.Authorization
	if err := stmt.WithContext(ctx).Model(&domain.Authorization{}).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Authorization, error) {
	stmt := db.WithContext(ctx).Model(&domain.Authorization{})
	if filter.BookingID != 0 {
		stmt = stmt.Where("booking_id = ?", filter.BookingID)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var out []domain.Authorization
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ListAuthorized(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]domain.Authorization, error) {
	var out []domain.Authorization
	err := db.WithContext(ctx).Model(&domain.Authorization{}).
		Where("status = ?", domain.StatusAuthorized).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) MarkAuthorized(ctx context.Context, db *gorm.DB, id snowflake.ID, providerAuthorizationID string, at time.Time) (int64, error) {
	var providerID *string
	if providerAuthorizationID != "" {
		providerID = &providerAuthorizationID
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_authorizations
		 SET status = ?, provider_authorization_id = ?, authorized_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusAuthorized, providerID, at, at,
		id, domain.StatusPending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkCaptured(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_authorizations
		 SET status = ?, captured_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusCaptured, at, at,
		id, domain.StatusAuthorized,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.Status, reason string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_authorizations
		 SET status = ?, failure_reason = ?, failed_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		domain.StatusFailed, reason, at, at,
		id, from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpsertPaymentMethod(ctx context.Context, db *gorm.DB, pm *domain.PaymentMethod) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO client_payment_methods (
			client_id, provider, authorization_code, email, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, provider) DO UPDATE SET
			authorization_code = excluded.authorization_code,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		pm.ClientID, pm.Provider, pm.AuthorizationCode, pm.Email, pm.CreatedAt, pm.UpdatedAt,
	).Error
}

func (r *repo) FindPaymentMethod(ctx context.Context, db *gorm.DB, clientID, provider string) (*domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	err := db.WithContext(ctx).Model(&domain.PaymentMethod{}).
		Where("client_id = ? AND provider = ?", clientID, provider).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}
