// Package rpcware runs an ordered chain of middleware around every call made
// by a JSON-RPC client.
//
// Usage:
//
//	counter := middleware.NewMetrics()
//
//	c := rpcware.NewBuilder(transport.NewHTTP("https://rpc.example.org")).
//	    With(middleware.NewLogger(log)).
//	    WithShared(counter).
//	    With(middleware.NewRateLimit(10, 10)).
//	    Build()
//
//	head, err := eth.New(c).BlockNumber(ctx)
//	fmt.Println(head, counter.Calls())
//
// The first middleware attached is the outermost: it sees each request first
// and its result last.
package rpcware

import (
	"context"
	"encoding/json"

	"github.com/hedeqiang/rpcware/middleware"
	"github.com/hedeqiang/rpcware/transport"
)

// Builder accumulates middleware for a base transport.
type Builder struct {
	base  transport.Transport
	stack []middleware.Middleware
}

// NewBuilder starts a builder over base with no middleware.
func NewBuilder(base transport.Transport) *Builder {
	return &Builder{base: base}
}

// With appends m to the chain. Use it when nothing outside the chain needs m.
func (b *Builder) With(m middleware.Middleware) *Builder {
	return b.WithShared(m)
}

// WithFunc appends a function middleware.
func (b *Builder) WithFunc(fn func(ctx context.Context, req *middleware.Request, next middleware.Next) (json.RawMessage, error)) *Builder {
	if fn == nil {
		panic("rpcware: nil middleware func")
	}
	return b.WithShared(middleware.Func(fn))
}

// WithShared appends m, which the caller keeps a reference to (typically a
// pointer) in order to read state it records, such as counters, after calls
// complete. The chain and the caller share the same instance.
// It panics if m is nil.
func (b *Builder) WithShared(m middleware.Middleware) *Builder {
	if m == nil {
		panic("rpcware: nil middleware")
	}
	b.stack = append(b.stack, m)
	return b
}

// Build returns a client that runs every attached middleware, in attachment
// order, around each call. The chain is composed once here; middleware
// attached to b afterwards does not affect the returned client.
func (b *Builder) Build() *Client {
	base := b.base
	terminal := func(ctx context.Context, req *middleware.Request) (json.RawMessage, error) {
		return base.Call(ctx, req.Method, req.Params...)
	}
	return &Client{
		base: base,
		next: middleware.Chain(terminal, b.stack...),
	}
}

// Client is a transport whose calls pass through a fixed middleware chain.
// It is safe for concurrent use when the base transport and every middleware are.
type Client struct {
	base transport.Transport
	next middleware.Next
}

var _ transport.Transport = (*Client)(nil)

// Call runs method through the chain and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params ...any) ([]byte, error) {
	return c.next(ctx, &middleware.Request{Method: method, Params: params})
}

// Do runs req through the chain.
func (c *Client) Do(ctx context.Context, req *middleware.Request) (json.RawMessage, error) {
	return c.next(ctx, req)
}

// Subscribe opens a subscription on the base transport. Subscriptions are
// streams, not request/response calls, and bypass the chain.
func (c *Client) Subscribe(ctx context.Context, method string, params ...any) (<-chan []byte, func(), error) {
	return c.base.Subscribe(ctx, method, params...)
}

// Close closes the base transport.
func (c *Client) Close() error {
	return c.base.Close()
}

// Transport returns the base transport.
func (c *Client) Transport() transport.Transport {
	return c.base
}
