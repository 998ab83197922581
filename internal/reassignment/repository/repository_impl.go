package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.BookingReassignment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_reassignments (
			id, booking_id, original_nanny_id, new_nanny_id, client_id, reason,
			alternative_nanny_ids, client_response, resolved_by, resolved_at,
			expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.BookingID, item.OriginalNannyID, item.NewNannyID, item.ClientID, item.Reason,
		item.AlternativeNannyIDs, item.ClientResponse, item.ResolvedBy, item.ResolvedAt,
		item.ExpiresAt, item.CreatedAt, item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BookingReassignment, error) {
	var out []domain.BookingReassignment
	if err := db.WithContext(ctx).Model(&domain.BookingReassignment{}).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingReassignment, error) {
	var out []domain.BookingReassignment
	err := db.WithContext(ctx).Model(&domain.BookingReassignment{}).
		Where("booking_id = ?", bookingID).
		Order("id desc").
		Find(&out).Error
	return out, err
}

func (r *repo) ListExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.BookingReassignment, error) {
	stmt := db.WithContext(ctx).Model(&domain.BookingReassignment{}).
		Where("client_response = ?", domain.ResponsePending).
		Where("resolved_at IS NULL").
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		Order("expires_at asc").
		Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var out []domain.BookingReassignment
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, response domain.Response, resolvedBy string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_reassignments
		SET client_response = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND client_response = ? AND resolved_at IS NULL`,
		response, resolvedBy, at, at, id, domain.ResponsePending,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CloseOpen(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, resolvedBy string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_reassignments
		SET resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE booking_id = ? AND client_response = ? AND resolved_at IS NULL`,
		resolvedBy, at, at, bookingID, domain.ResponsePending,
	)
	return res.RowsAffected, res.Error
}
