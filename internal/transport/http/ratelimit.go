package http

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles chat frames of one connection. A nil limiter allows everything.
type rateLimiter struct {
	lim *rate.Limiter
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil {
		return true
	}
	return r.lim.Allow()
}
