package middleware

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hedeqiang/rpcware/transport"
)

const tracerName = "github.com/hedeqiang/rpcware/middleware"

// Tracing starts an OpenTelemetry client span around each call.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing creates a tracing middleware. A nil provider selects the global one.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(tracerName)}
}

// Handle records a span named after the JSON-RPC method.
func (t *Tracing) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	ctx, span := t.tracer.Start(ctx, req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
		),
	)
	defer span.End()

	if id, ok := RequestIDFromContext(ctx); ok {
		span.SetAttributes(attribute.String("rpc.request_id", id))
	}

	result, err := next(ctx, req)
	if err != nil {
		var rpcErr *transport.RPCError
		if errors.As(err, &rpcErr) {
			span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", rpcErr.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}
