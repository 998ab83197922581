package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/escalation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *domain.Escalation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO escalations (id, booking_id, reason, status, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.BookingID, e.Reason, e.Status, e.Context, e.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Escalation, error) {
	var out []domain.Escalation
	if err := db.WithContext(ctx).Model(&domain.Escalation{}).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Escalation, error) {
	stmt := db.WithContext(ctx).Model(&domain.Escalation{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
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

	var out []domain.Escalation
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, resolvedBy string, note *string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE escalations
		SET status = ?, resolved_by = ?, resolution_note = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		domain.StatusResolved, resolvedBy, note, at, id, domain.StatusOpen,
	)
	return res.RowsAffected, res.Error
}
