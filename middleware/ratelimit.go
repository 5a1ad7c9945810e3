package middleware

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit limits the rate at which calls reach the base client.
type RateLimit struct {
	limiter *rate.Limiter
	wait    bool
}

// NewRateLimit creates a rate-limiting middleware that rejects calls above
// r per second (with the given burst) with ErrRateLimited.
func NewRateLimit(r rate.Limit, burst int) *RateLimit {
	return &RateLimit{limiter: rate.NewLimiter(r, burst)}
}

// NewRateLimitWait is like NewRateLimit but blocks until a token is available
// or the call's context is done.
func NewRateLimitWait(r rate.Limit, burst int) *RateLimit {
	return &RateLimit{limiter: rate.NewLimiter(r, burst), wait: true}
}

// Handle admits or rejects the call.
func (r *RateLimit) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	if r.wait {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRateLimited, req.Method, err)
		}
	} else if !r.limiter.Allow() {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, req.Method)
	}
	return next(ctx, req)
}
