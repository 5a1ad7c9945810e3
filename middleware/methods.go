package middleware

import (
	"context"
	"encoding/json"
	"fmt"
)

// MethodFilter rejects methods outside an allowlist before they leave the process.
type MethodFilter struct {
	allowed map[string]struct{}
}

// NewMethodFilter allows exactly the given methods. An empty list allows none.
func NewMethodFilter(methods ...string) *MethodFilter {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	return &MethodFilter{allowed: allowed}
}

// Allowed reports whether method may be called.
func (f *MethodFilter) Allowed(method string) bool {
	_, ok := f.allowed[method]
	return ok
}

// Handle short-circuits disallowed methods with ErrMethodNotAllowed.
func (f *MethodFilter) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	if !f.Allowed(req.Method) {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method)
	}
	return next(ctx, req)
}
