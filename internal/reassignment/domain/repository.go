package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, r *BookingReassignment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BookingReassignment, error)
	ListByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingReassignment, error)
	ListExpired(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]BookingReassignment, error)
	// Resolve records the answer on an open reassignment.
	Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, response Response, resolvedBy string, at time.Time) (int64, error)
	// CloseOpen resolves every open reassignment of a booking without
	// recording a client answer.
	CloseOpen(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, resolvedBy string, at time.Time) (int64, error)
}
