package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hedeqiang/rpcware/breaker"
	"github.com/hedeqiang/rpcware/transport"
)

// CircuitBreaker rejects calls with ErrCircuitOpen while the underlying breaker
// is open. JSON-RPC error responses count as successes. A call cancelled by
// the caller has no outcome; deadline expiry counts as a failure.
type CircuitBreaker struct {
	breaker *breaker.Breaker
}

// NewCircuitBreaker wraps b as a middleware.
func NewCircuitBreaker(b *breaker.Breaker) *CircuitBreaker {
	return &CircuitBreaker{breaker: b}
}

// Breaker returns the underlying breaker, for inspecting its state.
func (c *CircuitBreaker) Breaker() *breaker.Breaker {
	return c.breaker
}

// Handle admits the call if the circuit allows it and records the outcome.
func (c *CircuitBreaker) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, req.Method)
	}

	result, err := next(ctx, req)
	switch outcome(err) {
	case outcomeSuccess:
		c.breaker.RecordSuccess()
	case outcomeFailure:
		c.breaker.RecordFailure()
	default:
		c.breaker.Release()
	}
	return result, err
}

type callOutcome int

const (
	outcomeSuccess callOutcome = iota
	outcomeFailure
	outcomeNone
)

func outcome(err error) callOutcome {
	if err == nil {
		return outcomeSuccess
	}
	var rpcErr *transport.RPCError
	if errors.As(err, &rpcErr) {
		return outcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return outcomeNone
	}
	return outcomeFailure
}
