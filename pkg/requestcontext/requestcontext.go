// Package requestcontext carries request-scoped values (request ID, client IP,
// claimed caller identity and its proof) between middleware and handlers.
package requestcontext

import (
	"context"

	"credreg/pkg/domain"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	identityKey  struct{}
	proofKey     struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation ID, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithCaller stores the identity a request claims to act as together with the
// proof presented for it. Neither value is trusted until the gate verifies it.
func WithCaller(ctx context.Context, identity domain.Identity, proof string) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, identity)
	return context.WithValue(ctx, proofKey{}, proof)
}

// Caller returns the claimed identity and the raw proof, both possibly empty.
func Caller(ctx context.Context) (domain.Identity, string) {
	identity, _ := ctx.Value(identityKey{}).(domain.Identity)
	proof, _ := ctx.Value(proofKey{}).(string)
	return identity, proof
}
