package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InjectTraceID attaches a logger carrying a fresh trace id to ctx.
func InjectTraceID(ctx context.Context) context.Context {
	return InjectTraceIDValue(ctx, uuid.New().String())
}

// InjectTraceIDValue attaches a logger carrying id to ctx. An empty id gets a
// fresh one.
func InjectTraceIDValue(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}
