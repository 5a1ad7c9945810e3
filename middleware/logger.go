package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Logger logs each call that passes through the chain.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a logging middleware writing to l.
func NewLogger(l zerolog.Logger) *Logger {
	return &Logger{logger: l.With().Str("component", "rpc").Logger()}
}

// Handle logs method, duration and outcome of the call. Successful calls are
// logged at debug level, failures at error level.
func (l *Logger) Handle(ctx context.Context, req *Request, next Next) (json.RawMessage, error) {
	start := time.Now()
	result, err := next(ctx, req)

	var ev *zerolog.Event
	if err != nil {
		ev = l.logger.Error().Err(err)
	} else {
		ev = l.logger.Debug().Int("bytes", len(result))
	}
	ev = ev.Str("method", req.Method).Dur("duration", time.Since(start))
	if id, ok := RequestIDFromContext(ctx); ok {
		ev = ev.Str("request_id", id)
	}
	if err != nil {
		ev.Msg("rpc call failed")
	} else {
		ev.Msg("rpc call ok")
	}

	return result, err
}
