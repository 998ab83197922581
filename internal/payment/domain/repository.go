package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	BookingID snowflake.ID
	AfterID   int64
	Limit     int
}

type Repository interface {
	// Claim inserts a pending row. It reports zero rows when a live
	// authorization for the period already exists.
	Claim(ctx context.Context, db *gorm.DB, auth *Authorization) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Authorization, error)
	FindLive(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*Authorization, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Authorization, error)
	ListAuthorized(ctx context.Context, db *gorm.DB, afterID int64, limit int) ([]Authorization, error)

	MarkAuthorized(ctx context.Context, db *gorm.DB, id snowflake.ID, providerAuthorizationID string, at time.Time) (int64, error)
	MarkCaptured(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)
	// MarkFailed moves a row in one of from to failed.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, reason string, at time.Time) (int64, error)

	UpsertPaymentMethod(ctx context.Context, db *gorm.DB, pm *PaymentMethod) error
	FindPaymentMethod(ctx context.Context, db *gorm.DB, clientID, provider string) (*PaymentMethod, error)
}
