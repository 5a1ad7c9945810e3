package rpcware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/hedeqiang/rpcware/middleware"
)

// Option configures Dial.
type Option func(*dialOptions)

type dialOptions struct {
	logger     *zerolog.Logger
	registerer prometheus.Registerer
	tracer     trace.TracerProvider
	httpClient *http.Client
	extra      []middleware.Middleware
}

// WithLogger sets the logger used by the logging middleware.
// Without it, a logger is built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(o *dialOptions) {
		o.logger = &l
	}
}

// WithRegisterer sets where Prometheus collectors are registered.
// Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *dialOptions) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the provider used by the tracing middleware.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *dialOptions) {
		o.tracer = tp
	}
}

// WithHTTPClient sets the client used by HTTP endpoints. It overrides the
// configured timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *dialOptions) {
		o.httpClient = c
	}
}

// WithMiddleware appends middleware after the configured ones, making it the
// innermost part of the chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *dialOptions) {
		o.extra = append(o.extra, mws...)
	}
}
