package client

import (
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// rateLimiter admits up to limit commands per minute, refilling evenly. The
// limiter reads time from the client's clock so tests can drive it.
type rateLimiter struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

func newRateLimiter(limit int, clk clock.Clock) *rateLimiter {
	if limit <= 0 {
		return nil
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit),
		clock:   clk,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.AllowN(r.clock.Now(), 1)
}
