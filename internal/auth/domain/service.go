package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/nannyhub/internal/apperror"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	// Issue signs a token for id valid for ttl.
	Issue(ctx context.Context, id Identity, ttl time.Duration) (*Token, error)
	// Authenticate verifies a bearer token and returns its identity.
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
}

var (
	ErrMissingSecret = apperror.Validation("missing_jwt_secret")
	ErrInvalidToken  = apperror.Validation("invalid_token")
	ErrTokenExpired  = apperror.Validation("token_expired")
	ErrInvalidRole   = apperror.Validation("invalid_role")
	ErrInvalidUser   = apperror.Validation("invalid_user")
)
