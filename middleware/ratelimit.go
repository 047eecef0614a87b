package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimit is a Redis-backed fixed-window limiter keyed by client IP.
// When Redis is unreachable the request is allowed through (fail open).
func RateLimit(client *redis.Client, window time.Duration, max int, lg zerolog.Logger) gin.HandlerFunc {
	limitLg := lg.With().Str("component", "rate_limit").Logger()

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rateLimitKeyPrefix + c.ClientIP()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			limitLg.Warn().Err(err).Msg("redis unavailable, skipping rate limit")
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, window)
		}

		remaining := max - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > max {
			retryAfter := int(window.Seconds())
			if ttl, err := client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}
			c.Writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Rate limit exceeded, retry in %d seconds", retryAfter),
			})
			return
		}

		c.Next()
	}
}
