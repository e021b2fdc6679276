// Package caller lifts the claimed caller identity and its proof out of
// request headers. It does not verify anything; the registry gate does.
package caller

import (
	"net/http"
	"strings"

	"credreg/pkg/domain"
	"credreg/pkg/requestcontext"
)

const (
	IdentityHeader = "X-Identity"
	bearerPrefix   = "Bearer "
)

// Extract stores X-Identity and the bearer proof in the request context.
// Missing or malformed values are stored empty so read-only routes still work.
func Extract(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var identity domain.Identity
		if parsed, err := domain.ParseIdentity(r.Header.Get(IdentityHeader)); err == nil {
			identity = parsed
		}
		ctx := requestcontext.WithCaller(r.Context(), identity, bearerToken(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}
