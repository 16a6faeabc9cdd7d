// Package ratelimit enforces a fixed per-minute request window keyed by
// caller identity. The limiter fails open: without redis, or when redis
// errors, requests pass.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homewardlabs/homeward/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ratelimit",
	fx.Provide(New),
)

type Param struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Redis *redis.Client `optional:"true"`
}

type Limiter struct {
	log   *zap.Logger
	cfg   config.RateLimitConfig
	redis *redis.Client
}

func New(p Param) *Limiter {
	return &Limiter{
		log:   p.Log.Named("ratelimit"),
		cfg:   p.Cfg.RateLimit,
		redis: p.Redis,
	}
}

func (l *Limiter) limit() int {
	if l.cfg.RequestsPerMinute > 0 {
		return l.cfg.RequestsPerMinute
	}
	return 120
}

// Middleware counts requests in per-minute redis windows. The window key
// expires after two minutes so abandoned windows clean themselves up.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.cfg.Enabled || l.redis == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().UTC().Format("200601021504")
		key := fmt.Sprintf("ratelimit:%s:%s", clientKey(c), window)

		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			l.log.Warn("rate limit window unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			l.redis.Expire(ctx, key, 2*time.Minute)
		}

		limit := l.limit()
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "too many requests, slow down",
				},
			})
			return
		}
		c.Next()
	}
}

// clientKey prefers the authenticated key identity so NAT'd households
// are not throttled together; unauthenticated traffic falls back to IP.
func clientKey(c *gin.Context) string {
	if v, ok := c.Get("api_key_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}
