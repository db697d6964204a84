package security

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles purchase traffic per client IP using a fixed
// window counter in Redis.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient redis.Cmdable, limit int64, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: redisClient, limit: limit, window: window}
}

// PurchaseRateLimit caps requests per IP per window. Redis failures
// fail open: throttling is protection, not correctness.
func (r *RateLimiter) PurchaseRateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:purchase:%s", c.RealIP())

			count, err := r.redis.Incr(ctx, key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(ctx, key, r.window)
				}
				if count > r.limit {
					return c.JSON(http.StatusTooManyRequests, map[string]string{
						"error": "too many requests, try again later",
					})
				}
			}
			return next(c)
		}
	}
}
