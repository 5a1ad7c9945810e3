package rpcware

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hedeqiang/rpcware/breaker"
	"github.com/hedeqiang/rpcware/config"
	"github.com/hedeqiang/rpcware/internal/logging"
	"github.com/hedeqiang/rpcware/metrics"
	"github.com/hedeqiang/rpcware/middleware"
	"github.com/hedeqiang/rpcware/transport"
)

// Dial creates a transport for cfg.Endpoint and wraps it with the middleware
// enabled in cfg.Middleware, in this order (outermost first):
//
//	request id, tracing, logging, prometheus, timeout, method allowlist,
//	rate limit, circuit breaker, headers and bearer auth
//
// followed by any middleware passed with WithMiddleware.
func Dial(cfg config.Config, opts ...Option) (*Client, error) {
	var o dialOptions
	for _, opt := range opts {
		opt(&o)
	}

	base, err := newTransport(cfg, o.httpClient)
	if err != nil {
		return nil, err
	}

	stack, err := configuredStack(cfg, o)
	if err != nil {
		_ = base.Close()
		return nil, err
	}

	b := NewBuilder(base)
	for _, m := range stack {
		b.With(m)
	}
	for _, m := range o.extra {
		b.With(m)
	}
	return b.Build(), nil
}

func newTransport(cfg config.Config, hc *http.Client) (transport.Transport, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpcware: parse endpoint: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if hc == nil {
			hc = &http.Client{Timeout: cfg.Timeout}
		}
		return transport.NewHTTP(cfg.Endpoint, transport.WithHTTPClient(hc)), nil
	case "ws", "wss":
		return transport.NewWebSocket(cfg.Endpoint), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func configuredStack(cfg config.Config, o dialOptions) ([]middleware.Middleware, error) {
	m := cfg.Middleware
	var stack []middleware.Middleware

	if m.RequestID {
		stack = append(stack, middleware.RequestID())
	}
	if m.Tracing {
		stack = append(stack, middleware.NewTracing(o.tracer))
	}
	if m.Logging {
		if o.logger != nil {
			stack = append(stack, middleware.NewLogger(*o.logger))
		} else {
			stack = append(stack, middleware.NewLogger(logging.New(cfg.Log)))
		}
	}
	if m.Metrics {
		reg := o.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		c, err := metrics.New(m.MetricsNamespace, reg)
		if err != nil {
			return nil, fmt.Errorf("rpcware: register metrics: %w", err)
		}
		stack = append(stack, middleware.NewPrometheus(c))
	}
	if m.Timeout > 0 {
		stack = append(stack, middleware.Timeout(m.Timeout))
	}
	if len(m.AllowMethods) > 0 {
		stack = append(stack, middleware.NewMethodFilter(m.AllowMethods...))
	}
	if rl := m.RateLimit; rl.Enabled {
		burst := max(rl.Burst, 1)
		if rl.Wait {
			stack = append(stack, middleware.NewRateLimitWait(rate.Limit(rl.RequestsPerSecond), burst))
		} else {
			stack = append(stack, middleware.NewRateLimit(rate.Limit(rl.RequestsPerSecond), burst))
		}
	}
	if cb := m.CircuitBreaker; cb.Enabled {
		stack = append(stack, middleware.NewCircuitBreaker(breaker.New(cb.Threshold, cb.ResetTimeout)))
	}

	// Sorted so the header middleware order is stable across runs.
	keys := make([]string, 0, len(cfg.Headers))
	for k := range cfg.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		stack = append(stack, middleware.Header(k, cfg.Headers[k]))
	}
	if cfg.BearerToken != "" {
		stack = append(stack, middleware.BearerAuth(cfg.BearerToken))
	}

	return stack, nil
}
