package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/nannyhub/internal/config"
)

const keyWriteUser = "nannyhub:ratelimit:write:%s:%s"

// WriteLimiter throttles mutating calls per user and route. A nil limiter
// allows everything.
type WriteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWriteLimiter(cfg config.Config, client *redis.Client) *WriteLimiter {
	if client == nil || cfg.RateLimit.WriteRate <= 0 || cfg.RateLimit.WriteBurst <= 0 {
		return nil
	}
	return &WriteLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.WriteRate,
		burst:  cfg.RateLimit.WriteBurst,
	}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *WriteLimiter) Allow(ctx context.Context, userID, route string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyWriteUser, strings.TrimSpace(userID), strings.TrimSpace(route))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
