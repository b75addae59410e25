package httputil

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id, so layers below
// the HTTP boundary can correlate their records with the request.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by the HTTP middleware.
// The second return value is false outside a request scope.
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(uuid.UUID)
	return id, ok
}
