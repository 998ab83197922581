package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Escalation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Escalation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Escalation, error)
	Resolve(ctx context.Context, db *gorm.DB, id snowflake.ID, resolvedBy string, note *string, at time.Time) (int64, error)
}
