package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, at time.Time) (int64, error)
	Exists(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (bool, error)
}
