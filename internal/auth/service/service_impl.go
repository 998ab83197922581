package service

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/nannyhub/internal/auth/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/config"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	issuer     = "nannyhub"
	defaultTTL = 24 * time.Hour
	clockSkew  = 30 * time.Second
)

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	log    *zap.Logger
	secret []byte
	clock  clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:    p.Log.Named("auth.service"),
		secret: []byte(strings.TrimSpace(p.Cfg.AuthJWTSecret)),
		clock:  c,
	}
}

func (s *Service) Issue(ctx context.Context, id domain.Identity, ttl time.Duration) (*domain.Token, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrMissingSecret
	}
	if strings.TrimSpace(id.UserID) == "" {
		return nil, domain.ErrInvalidUser
	}
	if !id.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := domain.Claims{
		Role:  string(id.Role),
		Email: strings.TrimSpace(id.Email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(id.UserID),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &domain.Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	if len(s.secret) == 0 {
		return nil, domain.ErrMissingSecret
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(rawToken, &domain.Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		s.log.Debug("rejected bearer token", zap.Error(err))
		return nil, domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	role := profiledomain.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	return &domain.Identity{UserID: userID, Role: role, Email: claims.Email}, nil
}
