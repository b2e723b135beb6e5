// Package ratelimiter throttles the requests a remoting session serves.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket: tokens are added at a constant rate, every
// request takes one, and burst bounds how many can accumulate.
//
// A nil *RateLimiter allows everything, so callers can keep an optional
// limiter without nil checks.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained and burst
// immediate requests. requestsPerSecond = 0 returns nil (unlimited). A burst
// of 0 is raised to 1, otherwise no request could ever pass.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow takes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket. It goes negative while
// waiters hold reservations. A nil limiter reports rate.Inf.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return float64(rate.Inf)
	}
	return r.limiter.Tokens()
}
