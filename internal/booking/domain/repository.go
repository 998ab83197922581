package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, b *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Booking, error)
	// UpdateStatus moves the booking only while it is still in from.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, at time.Time) (int64, error)
	UpdateNanny(ctx context.Context, db *gorm.DB, id snowflake.ID, nannyID string, from, to Status, at time.Time) (int64, error)
	ListStartingBy(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]Booking, error)
	ListEndedBefore(ctx context.Context, db *gorm.DB, day time.Time, limit int) ([]Booking, error)
	ListBillable(ctx context.Context, db *gorm.DB, day time.Time, afterID int64, limit int) ([]Booking, error)

	InsertFinancials(ctx context.Context, db *gorm.DB, f *Financials) (int64, error)
	FindFinancials(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Financials, error)
	UpdateFinancials(ctx context.Context, db *gorm.DB, f *Financials) (int64, error)
}
