package middleware

import (
	"context"
	"encoding/json"

	"github.com/hedeqiang/rpcware/transport"
)

// Header sets an outgoing HTTP header on every call.
func Header(key, value string) Middleware {
	return Func(func(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
		return next(transport.WithHeader(ctx, key, value), req)
	})
}

// BearerAuth sends token in the Authorization header.
func BearerAuth(token string) Middleware {
	return Header("Authorization", "Bearer "+token)
}
