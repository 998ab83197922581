package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert ignores a second advice for the same booking period.
	Insert(ctx context.Context, db *gorm.DB, a *PaymentAdvice) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentAdvice, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*PaymentAdvice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]PaymentAdvice, error)
	ListUndelivered(ctx context.Context, db *gorm.DB, maxAttempts, limit int) ([]PaymentAdvice, error)
	RecordDelivery(ctx context.Context, db *gorm.DB, id snowflake.ID, deliveredAt *time.Time) error
}
