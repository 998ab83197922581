package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/nannyhub/internal/apperror"
)

type NannyDetails struct {
	Bio           *string    `json:"bio"`
	IsAvailable   *bool      `json:"is_available"`
	AvailableFrom *time.Time `json:"available_from"`
	Skills        []string   `json:"skills"`
	Arrangements  []string   `json:"arrangements"`
}

type ClientDetails struct {
	HomeSize          string   `json:"home_size"`
	LivingArrangement string   `json:"living_arrangement"`
	RequiredSkills    []string `json:"required_skills"`
	Address           *string  `json:"address"`
}

type SaveProfileRequest struct {
	UserID   string         `json:"-"`
	Role     Role           `json:"role"`
	FullName string         `json:"full_name"`
	Email    string         `json:"email"`
	Phone    *string        `json:"phone"`
	Nanny    *NannyDetails  `json:"nanny"`
	Client   *ClientDetails `json:"client"`
}

type Service interface {
	// Save writes the profile and its role section in one transaction.
	Save(ctx context.Context, req SaveProfileRequest) (*View, error)
	Get(ctx context.Context, userID string) (*View, error)
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]Candidate, error)
	ListAdmins(ctx context.Context) ([]Profile, error)
}

var (
	ErrProfileNotFound      = apperror.NotFound("profile_not_found")
	ErrInvalidUser          = apperror.Validation("invalid_user")
	ErrInvalidRole          = apperror.Validation("invalid_role")
	ErrInvalidFullName      = apperror.Validation("invalid_full_name")
	ErrInvalidEmail         = apperror.Validation("invalid_email")
	ErrInvalidHomeSize      = apperror.Validation("invalid_home_size")
	ErrInvalidArrangement   = apperror.Validation("invalid_living_arrangement")
	ErrRoleSectionMismatch  = apperror.Validation("role_section_mismatch")
	ErrRoleChangeNotAllowed = apperror.Forbidden("role_change_not_allowed")
)
