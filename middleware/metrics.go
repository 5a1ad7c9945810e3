package middleware

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// Metrics collects basic counters for calls made through the chain.
// Attach it with WithShared and keep the pointer to read the counters.
type Metrics struct {
	calls     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
}

// NewMetrics creates a metrics collection middleware.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Handle counts the call and its outcome.
func (m *Metrics) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	m.calls.Add(1)
	result, err := next(ctx, req)
	if err != nil {
		m.failed.Add(1)
	} else {
		m.succeeded.Add(1)
	}
	return result, err
}

// Calls returns the number of calls that entered this middleware.
func (m *Metrics) Calls() uint64 {
	return m.calls.Load()
}

// Succeeded returns the number of calls that returned without error.
func (m *Metrics) Succeeded() uint64 {
	return m.succeeded.Load()
}

// Failed returns the number of calls that returned an error.
func (m *Metrics) Failed() uint64 {
	return m.failed.Load()
}
