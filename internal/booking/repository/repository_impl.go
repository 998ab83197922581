package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nannyhub/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, client_id, nanny_id, category, status, start_date, end_date,
			base_rate, additional_services_cost, total_cost, currency,
			home_size, living_arrangement, required_skills, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ClientID, b.NannyID, b.Category, b.Status, b.StartDate, b.EndDate,
		b.BaseRate, b.AdditionalServicesCost, b.TotalCost, b.Currency,
		b.HomeSize, b.LivingArrangement, b.RequiredSkills, b.Notes,
		b.CreatedAt, b.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var out []domain.Booking
	if err := db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Booking, error) {
	stmt := db.WithContext(ctx).Model(&domain.Booking{})
	if filter.ClientID != "" {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.NannyID != "" {
		stmt = stmt.Where("nanny_id = ?", filter.NannyID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.AfterID > 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var out []domain.Booking
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, at time.Time) (int64, error) {
	var cancelledAt *time.Time
	if to == domain.StatusCancelled {
		cancelledAt = &at
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE bookings
		SET status = ?, updated_at = ?, cancelled_at = COALESCE(?, cancelled_at)
		WHERE id = ? AND status = ?`,
		to, at, cancelledAt, id, from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateNanny(ctx context.Context, db *gorm.DB, id snowflake.ID, nannyID string, from, to domain.Status, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bookings
		SET nanny_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		nannyID, to, at, id, from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListStartingBy(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status = ?", domain.StatusConfirmed).
		Where("start_date <= ?", day).
		Order("start_date ASC").Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) ListEndedBefore(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status = ?", domain.StatusActive).
		Where("end_date IS NOT NULL AND end_date < ?", day).
		Order("end_date ASC").Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) ListBillable(ctx context.Context, db *gorm.DB, day time.Time, afterID int64, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("status IN ?", domain.BillableStatuses).
		Where("(end_date IS NULL OR end_date >= ?)", day).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) InsertFinancials(ctx context.Context, db *gorm.DB, f *domain.Financials) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO booking_financials (
			booking_id, category, home_size, rate, booking_days, fixed_fee,
			commission_percent, commission_amount, payer_total, payee_net, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (booking_id) DO NOTHING`,
		f.BookingID, f.Category, f.HomeSize, f.Rate, f.BookingDays, f.FixedFee,
		f.CommissionPercent, f.CommissionAmount, f.PayerTotal, f.PayeeNet, f.CalculatedAt,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindFinancials(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.Financials, error) {
	var out []domain.Financials
	if err := db.WithContext(ctx).Model(&domain.Financials{}).Where("booking_id = ?", bookingID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repo) UpdateFinancials(ctx context.Context, db *gorm.DB, f *domain.Financials) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_financials
		SET fixed_fee = ?, commission_percent = ?, commission_amount = ?,
			payer_total = ?, payee_net = ?,
			corrected_at = ?, corrected_by = ?, correction_reason = ?
		WHERE booking_id = ?`,
		f.FixedFee, f.CommissionPercent, f.CommissionAmount,
		f.PayerTotal, f.PayeeNet,
		f.CorrectedAt, f.CorrectedBy, f.CorrectionReason,
		f.BookingID,
	)
	return res.RowsAffected, res.Error
}
