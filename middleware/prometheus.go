package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hedeqiang/rpcware/metrics"
	"github.com/hedeqiang/rpcware/transport"
)

// Prometheus records call counts, latency and in-flight calls.
type Prometheus struct {
	c *metrics.Collectors
}

// NewPrometheus creates a middleware recording into c.
func NewPrometheus(c *metrics.Collectors) *Prometheus {
	return &Prometheus{c: c}
}

// Handle observes the call.
func (p *Prometheus) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	method := metrics.NormalizeMethod(req.Method)

	p.c.RequestsInFlight.Inc()
	defer p.c.RequestsInFlight.Dec()
	start := time.Now()
	result, err := next(ctx, req)
	p.c.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	p.c.RequestsTotal.WithLabelValues(method, status(err)).Inc()
	return result, err
}

func status(err error) string {
	if err == nil {
		return metrics.StatusOK
	}
	var rpcErr *transport.RPCError
	if errors.As(err, &rpcErr) {
		return metrics.StatusRPCError
	}
	return metrics.StatusError
}
