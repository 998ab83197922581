// Package domain contains core types for request identity.
package domain

import (
	"context"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string             `json:"userId"`
	Role   profiledomain.Role `json:"role"`
	Email  string             `json:"email,omitempty"`
}

func (i Identity) IsAdmin() bool { return i.Role == profiledomain.RoleAdmin }

// Claims is the bearer token payload.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
