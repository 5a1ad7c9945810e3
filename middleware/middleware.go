// Package middleware provides interceptors for outgoing JSON-RPC calls.
//
// A Middleware sees every request on its way to the base client together with
// a Next continuation standing for the rest of the chain. It may call Next once
// (the usual case), not at all (short-circuit) or several times.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrRateLimited is returned when a call is rejected by RateLimit.
	ErrRateLimited = errors.New("middleware: rate limited")

	// ErrCircuitOpen is returned when CircuitBreaker rejects a call.
	ErrCircuitOpen = errors.New("middleware: circuit open")

	// ErrMethodNotAllowed is returned when MethodFilter rejects a call.
	ErrMethodNotAllowed = errors.New("middleware: method not allowed")
)

// Request is a single outgoing JSON-RPC call.
type Request struct {
	Method string
	Params []any
}

// Next invokes the remainder of the chain, ending at the base client.
type Next func(ctx context.Context, req *Request) (json.RawMessage, error)

// Middleware intercepts a request before it reaches the base client.
type Middleware interface {
	// Handle processes req, deciding whether and how often to call next.
	Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error)
}

// Func adapts an ordinary function to the Middleware interface.
type Func func(ctx context.Context, req *Request, next Next) (json.RawMessage, error)

// Handle calls f(ctx, req, next).
func (f Func) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	return f(ctx, req, next)
}

// Chain composes mws around terminal. The first middleware is outermost: it
// sees the request first and the result last. With no middleware, terminal is
// returned unchanged.
func Chain(terminal Next, mws ...Middleware) Next {
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		next = bind(mws[i], next)
	}
	return next
}

func bind(m Middleware, next Next) Next {
	return func(ctx context.Context, req *Request) (json.RawMessage, error) {
		return m.Handle(ctx, req, next)
	}
}
