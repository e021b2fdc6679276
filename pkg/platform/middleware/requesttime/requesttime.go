// Package requesttime provides the host-supplied clock for a request.
// Every operation within one request observes the same timestamp, truncated to
// whole seconds the way ledger timestamps are, so a credential's completion
// date and its audit events agree.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type contextKeyRequestTime struct{}

// Middleware captures the host time once at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Now returns the request-scoped time, falling back to the wall clock for
// non-HTTP callers (CLI, workers, tests that do not pin a time).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC().Truncate(time.Second)
}

// WithTime pins the request time. Tests use it to make completion dates deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t.UTC().Truncate(time.Second))
}
