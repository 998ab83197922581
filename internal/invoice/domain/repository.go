package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, inv *Invoice) (int64, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, periodStart time.Time) (*Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Item, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)
	CountIssuedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error)
}
