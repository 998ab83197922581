package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/nannyhub/internal/auditcontext"
	authdomain "github.com/smallbiznis/nannyhub/internal/auth/domain"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	obscontext "github.com/smallbiznis/nannyhub/internal/observability/context"
	"github.com/smallbiznis/nannyhub/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	contextIdentityKey = "identity"
	accessTokenQuery   = "access_token"
)

// AuthRequired resolves the bearer token into an identity. EventSource
// clients cannot set headers, so the token is also read from the
// access_token query parameter.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query(accessTokenQuery))
		}
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := s.authSvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("authentication failed", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := authdomain.WithIdentity(c.Request.Context(), *id)
		ctx = obscontext.WithActor(ctx, string(id.Role), id.UserID)
		ctx = auditcontext.WithActor(ctx, string(id.Role), id.UserID)
		if strings.Contains(c.FullPath(), "/bookings/:id") {
			ctx = auditcontext.WithBookingID(ctx, c.Param("id"))
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextIdentityKey, *id)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Authorize checks the caller's role against the policy for object and
// action.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), id.UserID, string(id.Role), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// WriteRateLimit throttles mutating calls per user when Redis is
// configured.
func (s *Server) WriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.writeLimiter.Enabled() {
			c.Next()
			return
		}
		id, ok := identity(c)
		if !ok {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		res, err := s.writeLimiter.Allow(ctx, id.UserID, c.FullPath())
		if err != nil {
			logger.FromContext(ctx).Warn("write rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if seconds := int(res.RetryAfter.Seconds() + 0.999); seconds > 0 {
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) (authdomain.Identity, bool) {
	raw, ok := c.Get(contextIdentityKey)
	if !ok {
		return authdomain.Identity{}, false
	}
	id, ok := raw.(authdomain.Identity)
	return id, ok && id.UserID != ""
}

func mustIdentity(c *gin.Context) (authdomain.Identity, bool) {
	id, ok := identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
	}
	return id, ok
}

func bookingActor(id authdomain.Identity) bookingdomain.Actor {
	return bookingdomain.Actor{ID: id.UserID, Role: id.Role}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
