package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// rateLimiter admits at most limit requests per client IP per minute.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Time
	counter map[string]int
	now     func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:   limit,
		counter: make(map[string]int),
		now:     time.Now,
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.window) >= time.Minute {
		r.window = now
		clear(r.counter)
	}
	r.counter[key]++
	return r.counter[key] <= r.limit
}

// RateLimitMiddleware rejects clients that exceed limit requests per minute.
func RateLimitMiddleware(limit int, logger *zerolog.Logger) gin.HandlerFunc {
	limiter := newRateLimiter(limit)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			logger.Debug().Str("ip", c.ClientIP()).Msg("api rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
				Code:  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
