package middleware

import (
	"context"
	"encoding/json"
	"time"
)

// Timeout bounds each call, including every middleware inside it, by d.
// A non-positive d leaves the context untouched.
func Timeout(d time.Duration) Middleware {
	return Func(func(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
		if d <= 0 {
			return next(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx, req)
	})
}
