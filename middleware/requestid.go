package middleware

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hedeqiang/rpcware/transport"
)

// RequestIDHeader is the HTTP header carrying the request id.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// RequestID tags every call with a fresh UUID. The id is stored in the
// context for inner middleware and sent to HTTP nodes as X-Request-ID.
// A call whose context already carries an id keeps it.
func RequestID() Middleware {
	return Func(func(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
		if _, ok := RequestIDFromContext(ctx); ok {
			return next(ctx, req)
		}
		id := uuid.NewString()
		ctx = context.WithValue(ctx, requestIDKey{}, id)
		ctx = transport.WithHeader(ctx, RequestIDHeader, id)
		return next(ctx, req)
	})
}
