// Package transport provides the JSON-RPC base clients that middleware chains wrap.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Transport sends JSON-RPC requests and returns raw responses.
type Transport interface {
	// Call sends a JSON-RPC request and returns the result bytes.
	Call(ctx context.Context, method string, params ...any) ([]byte, error)

	// Subscribe establishes a streaming subscription (WebSocket only).
	// Returns a channel of raw notification payloads and an unsubscribe function.
	Subscribe(ctx context.Context, method string, params ...any) (<-chan []byte, func(), error)

	// Close terminates the transport connection.
	Close() error
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the remote node.
// Its presence means the node answered; the transport itself is healthy.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: code=%d message=%s", e.Code, e.Message)
}

func newRequest(id uint64, method string, params []any) jsonRPCRequest {
	if params == nil {
		params = []any{}
	}
	return jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

type headerKey struct{}

// WithHeader returns a context that carries an outgoing header for the next call.
// Existing headers on ctx are preserved; the parent context is never mutated.
func WithHeader(ctx context.Context, key, value string) context.Context {
	h := HeaderFromContext(ctx).Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set(key, value)
	return context.WithValue(ctx, headerKey{}, h)
}

// HeaderFromContext returns the outgoing headers stored on ctx, or nil.
func HeaderFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headerKey{}).(http.Header)
	return h
}
