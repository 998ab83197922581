package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	UpsertProfile(ctx context.Context, db *gorm.DB, p *Profile) error
	UpsertNanny(ctx context.Context, db *gorm.DB, n *NannyProfile) error
	ReplaceSkills(ctx context.Context, db *gorm.DB, userID string, skills []string) error
	ReplaceArrangements(ctx context.Context, db *gorm.DB, userID string, arrangements []string) error
	UpsertClientPreferences(ctx context.Context, db *gorm.DB, c *ClientPreferences) error

	FindProfile(ctx context.Context, db *gorm.DB, userID string) (*Profile, error)
	FindNanny(ctx context.Context, db *gorm.DB, userID string) (*NannyProfile, error)
	FindClientPreferences(ctx context.Context, db *gorm.DB, userID string) (*ClientPreferences, error)
	ListByRole(ctx context.Context, db *gorm.DB, role Role) ([]Profile, error)
	FindCandidates(ctx context.Context, db *gorm.DB, filter CandidateFilter) ([]Candidate, error)
}
